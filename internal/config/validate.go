package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		return errors.New("paths.inbox_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		return errors.New("paths.temp_dir must be set")
	}
	return nil
}

func (c *Config) validateCategories() error {
	for name, cat := range c.Categories {
		if strings.ContainsAny(cat.Subfolder, "\x00") {
			return fmt.Errorf("categories.%s.subfolder contains invalid characters", name)
		}
	}
	if _, ok := c.Categories[CategoryOther]; !ok {
		return errors.New("categories must include the catch-all \"other\" entry")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIURL == "" {
		return nil
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set when llm.api_url is configured")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		return nil
	}
	if c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id must be set when telegram.bot_token is configured")
	}
	return nil
}
