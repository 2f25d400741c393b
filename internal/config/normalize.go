package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSheets()
	c.normalizeSTT()
	c.normalizeLLM()
	c.normalizeTelegram()
	c.normalizeCategories()
	c.normalizeWorker()
	c.normalizeArchive()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.PromptsDir, err = expandPath(c.Paths.PromptsDir); err != nil {
		return fmt.Errorf("paths.prompts_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSheets() {
	c.Sheets.BaseURL = strings.TrimRight(strings.TrimSpace(c.Sheets.BaseURL), "/")
	c.Sheets.APIKey = strings.TrimSpace(c.Sheets.APIKey)
	if c.Sheets.RequestTimeout <= 0 {
		c.Sheets.RequestTimeout = defaultSheetsRequestTimeout
	}
	if strings.TrimSpace(c.Sheets.PendingMarker) == "" {
		c.Sheets.PendingMarker = defaultPendingMarker
	}
	if strings.TrimSpace(c.Sheets.ErrorMarker) == "" {
		c.Sheets.ErrorMarker = defaultErrorMarker
	}
	if strings.TrimSpace(c.Sheets.DoneMarker) == "" {
		c.Sheets.DoneMarker = defaultDoneMarker
	}
}

func (c *Config) normalizeSTT() {
	c.STT.APIURL = strings.TrimRight(strings.TrimSpace(c.STT.APIURL), "/")
	c.STT.APIKey = strings.TrimSpace(c.STT.APIKey)
	if c.STT.PollInterval <= 0 {
		c.STT.PollInterval = defaultSTTPollInterval
	}
	if c.STT.MaxPolls <= 0 {
		c.STT.MaxPolls = defaultSTTMaxPolls
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIURL = strings.TrimSpace(c.LLM.APIURL)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.ConnectTimeout <= 0 {
		c.LLM.ConnectTimeout = defaultLLMConnectTimeout
	}
	if c.LLM.ReadTimeout <= 0 {
		c.LLM.ReadTimeout = defaultLLMReadTimeout
	}
	if c.LLM.MaxInputChars <= 0 {
		c.LLM.MaxInputChars = defaultLLMMaxInputChars
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = defaultLLMTemperature
	}
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	if c.Telegram.MessageTimeout <= 0 {
		c.Telegram.MessageTimeout = defaultMessageTimeout
	}
	if c.Telegram.DocumentTimeout <= 0 {
		c.Telegram.DocumentTimeout = defaultDocumentTimeout
	}
}

func (c *Config) normalizeCategories() {
	defaults := Default().Categories
	if c.Categories == nil {
		c.Categories = map[string]Category{}
	}
	for name, def := range defaults {
		if _, ok := c.Categories[name]; !ok {
			c.Categories[name] = def
		}
	}
	if c.SpeakerMap == nil {
		c.SpeakerMap = map[string]string{}
	}
}

func (c *Config) normalizeWorker() {
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = defaultWorkerPollInterval
	}
	if c.Worker.ScanInterval <= 0 {
		c.Worker.ScanInterval = defaultWorkerScanInterval
	}
}

func (c *Config) normalizeArchive() {
	if c.Archive.MinFreeGiB < 0 {
		c.Archive.MinFreeGiB = 0
	}
	if c.Archive.SettleDelay < 0 {
		c.Archive.SettleDelay = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
