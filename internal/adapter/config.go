package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/readmigo/reader/internal/domain"
	"github.com/spf13/viper"
)

const appName = "readmigo"

// Config holds all application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Library LibraryConfig `mapstructure:"library"`
	Reader  ReaderConfig  `mapstructure:"reader"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds content API configuration
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables limiting
}

// LibraryConfig points at a directory of local book files
type LibraryConfig struct {
	Dir string `mapstructure:"dir"`
}

// ReaderConfig mirrors domain.ReaderSettings with config-file key names
type ReaderConfig struct {
	FontSize         int     `mapstructure:"font_size"`
	FontFamily       string  `mapstructure:"font_family"`
	LineHeight       float64 `mapstructure:"line_height"`
	LetterSpacing    float64 `mapstructure:"letter_spacing"`
	WordSpacing      float64 `mapstructure:"word_spacing"`
	ParagraphSpacing float64 `mapstructure:"paragraph_spacing"`
	TextAlign        string  `mapstructure:"text_align"`
	Hyphenation      bool    `mapstructure:"hyphenation"`
	Theme            string  `mapstructure:"theme"`
	ReadingMode      string  `mapstructure:"reading_mode"`
	Margin           int     `mapstructure:"margin"`
}

// StoreConfig holds position store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"` // empty keeps positions in memory
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Reader: readerConfigFrom(domain.DefaultSettings()),
		Store: StoreConfig{
			Path: defaultDataPath("positions"),
		},
		Logging: LoggingConfig{
			File:   defaultDataPath(appName + ".log"),
			Level:  "INFO",
			Format: "json",
		},
	}
}

func readerConfigFrom(s domain.ReaderSettings) ReaderConfig {
	return ReaderConfig{
		FontSize:         s.FontSize,
		FontFamily:       s.FontFamily,
		LineHeight:       s.LineHeight,
		LetterSpacing:    s.LetterSpacing,
		WordSpacing:      s.WordSpacing,
		ParagraphSpacing: s.ParagraphSpacing,
		TextAlign:        string(s.TextAlign),
		Hyphenation:      s.Hyphenation,
		Theme:            s.Theme,
		ReadingMode:      string(s.ReadingMode),
		Margin:           s.Margin,
	}
}

// defaultDataPath returns a path under the per-user data directory
func defaultDataPath(name string) string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, name)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, name)
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// newViper returns a viper instance with every default registered so that
// READMIGO_* environment variables can override nested keys.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("READMIGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.token", def.API.Token)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("api.requests_per_second", def.API.RequestsPerSecond)
	v.SetDefault("library.dir", def.Library.Dir)
	setReaderKeys(v.SetDefault, def.Reader)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	return v
}

// setReaderKeys writes the reader section with snake_case keys
func setReaderKeys(set func(key string, value any), r ReaderConfig) {
	set("reader.font_size", r.FontSize)
	set("reader.font_family", r.FontFamily)
	set("reader.line_height", r.LineHeight)
	set("reader.letter_spacing", r.LetterSpacing)
	set("reader.word_spacing", r.WordSpacing)
	set("reader.paragraph_spacing", r.ParagraphSpacing)
	set("reader.text_align", r.TextAlign)
	set("reader.hyphenation", r.Hyphenation)
	set("reader.theme", r.Theme)
	set("reader.reading_mode", r.ReadingMode)
	set("reader.margin", r.Margin)
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(defaultConfigPath())
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}
	return decode(v)
}

// LoadConfigFrom loads configuration from an explicit file
func LoadConfigFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// SaveSettings writes the reader section to the default config file,
// keeping whatever else the file already holds.
func SaveSettings(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return SaveSettingsTo(filepath.Join(configPath, "config.yaml"), cfg)
}

// SaveSettingsTo writes the reader section to configFile
func SaveSettingsTo(configFile string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading config file: %w", err)
	}

	setReaderKeys(v.Set, cfg.Reader)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsRemote returns true if a content API is configured
func (c *Config) IsRemote() bool {
	return c.API.BaseURL != ""
}

// ReaderSettings converts the reader section to validated settings.
// Unknown modes and alignments are errors; out-of-range numbers are clamped.
func (c *Config) ReaderSettings() (domain.ReaderSettings, error) {
	r := c.Reader
	mode := domain.ReadingMode(r.ReadingMode)
	if !mode.Valid() {
		return domain.ReaderSettings{}, fmt.Errorf("%w: reading_mode %q", domain.ErrInvalidSettings, r.ReadingMode)
	}
	align := domain.TextAlign(r.TextAlign)
	switch align {
	case domain.TextAlignLeft, domain.TextAlignRight, domain.TextAlignCenter, domain.TextAlignJustify:
	default:
		return domain.ReaderSettings{}, fmt.Errorf("%w: text_align %q", domain.ErrInvalidSettings, r.TextAlign)
	}

	s := domain.ReaderSettings{
		FontSize:         r.FontSize,
		FontFamily:       r.FontFamily,
		LineHeight:       r.LineHeight,
		LetterSpacing:    r.LetterSpacing,
		WordSpacing:      r.WordSpacing,
		ParagraphSpacing: r.ParagraphSpacing,
		TextAlign:        align,
		Hyphenation:      r.Hyphenation,
		Theme:            r.Theme,
		ReadingMode:      mode,
		Margin:           r.Margin,
	}
	return s.Normalize(), nil
}

// SetReaderSettings copies s into the reader section
func (c *Config) SetReaderSettings(s domain.ReaderSettings) {
	c.Reader = readerConfigFrom(s)
}
