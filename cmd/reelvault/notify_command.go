package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelvault/internal/logging"
	"reelvault/internal/services/telegram"
)

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			service := telegram.New(telegram.Config{
				BotToken:        cfg.Telegram.BotToken,
				ChatID:          cfg.Telegram.ChatID,
				MessageTimeout:  time.Duration(cfg.Telegram.MessageTimeout) * time.Second,
				DocumentTimeout: time.Duration(cfg.Telegram.DocumentTimeout) * time.Second,
			}, logging.NewNop())
			if !service.Available() {
				return fmt.Errorf("telegram is not configured: set bot_token and chat_id")
			}

			text := fmt.Sprintf("reelvault notification test (%s)",
				time.Now().Format("2006-01-02 15:04:05"))
			if err := service.SendMessage(cmd.Context(), text); err != nil {
				return fmt.Errorf("send test message: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test message sent")
			return nil
		},
	}
}
