package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InboxDir   string `toml:"inbox_dir"`
	TempDir    string `toml:"temp_dir"`
	ArchiveDir string `toml:"archive_dir"`
	LogDir     string `toml:"log_dir"`
	PromptsDir string `toml:"prompts_dir"`
}

// Sheets contains configuration for the spreadsheet metadata store.
type Sheets struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
	PendingMarker  string `toml:"pending_marker"`
	ErrorMarker    string `toml:"error_marker"`
	DoneMarker     string `toml:"done_marker"`
	SummaryTab     string `toml:"summary_tab"`
}

// STT contains configuration for the transcription server.
type STT struct {
	APIURL       string `toml:"api_url"`
	APIKey       string `toml:"api_key"`
	PollInterval int    `toml:"poll_interval"`
	MaxPolls     int    `toml:"max_polls"`
}

// LLM contains configuration for the summarization endpoint.
type LLM struct {
	APIURL         string  `toml:"api_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	ConnectTimeout int     `toml:"connect_timeout"`
	ReadTimeout    int     `toml:"read_timeout"`
	MaxInputChars  int     `toml:"max_input_chars"`
	Temperature    float64 `toml:"temperature"`
}

// Telegram contains configuration for notification delivery.
type Telegram struct {
	BotToken        string `toml:"bot_token"`
	ChatID          string `toml:"chat_id"`
	MessageTimeout  int    `toml:"message_timeout"`
	DocumentTimeout int    `toml:"document_timeout"`
}

// Category describes one content category: where its intake files live, the
// tag used in filenames and notification headers, and which instruction
// document drives its summaries.
type Category struct {
	Subfolder  string `toml:"subfolder"`
	Tag        string `toml:"tag"`
	PromptFile string `toml:"prompt_file"`
}

// Worker contains configuration for the background worker loop.
type Worker struct {
	PollInterval int `toml:"poll_interval"`
	ScanInterval int `toml:"scan_interval"`
}

// Archive contains configuration for the archival stage.
type Archive struct {
	MinFreeGiB  int `toml:"min_free_gib"`
	SettleDelay int `toml:"settle_delay"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelvault.
type Config struct {
	Paths      Paths               `toml:"paths"`
	Sheets     Sheets              `toml:"sheets"`
	STT        STT                 `toml:"stt"`
	LLM        LLM                 `toml:"llm"`
	Telegram   Telegram            `toml:"telegram"`
	Categories map[string]Category `toml:"categories"`
	SpeakerMap map[string]string   `toml:"speaker_map"`
	Worker     Worker              `toml:"worker"`
	Archive    Archive             `toml:"archive"`
	Logging    Logging             `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelvault/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelvault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for worker operation.
// ArchiveDir is created on a best-effort basis so the daemon can start when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) != "" {
		_ = os.MkdirAll(c.Paths.ArchiveDir, 0o755)
	}
	return nil
}

// CategoryFor returns the category settings for name, falling back to the
// catch-all "other" entry when the name is unknown.
func (c *Config) CategoryFor(name string) Category {
	if cat, ok := c.Categories[name]; ok {
		return cat
	}
	return c.Categories[CategoryOther]
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
