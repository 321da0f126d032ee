package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Search    SearchConfig    `mapstructure:"search"`
	Database  DatabaseConfig  `mapstructure:"database"`
	UI        UIConfig        `mapstructure:"ui"`
	Keys      KeyConfig       `mapstructure:"keys"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig points at a running TyporaX editor service.
type ServerConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	SessionCookie string        `mapstructure:"session_cookie"`
}

// WorkspaceConfig enables the offline backend when Root is set.
type WorkspaceConfig struct {
	Root          string   `mapstructure:"root"`
	Index         string   `mapstructure:"index"`
	Include       []string `mapstructure:"include"`
	Exclude       []string `mapstructure:"exclude"`
	Watch         bool     `mapstructure:"watch"`
	SnippetWindow int      `mapstructure:"snippet_window"`
	ReadLimit     int      `mapstructure:"read_limit"`
}

type SearchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	HighlightDwell time.Duration `mapstructure:"highlight_dwell"`
	DiscardStale   bool          `mapstructure:"discard_stale"`
	HistorySize    int           `mapstructure:"history_size"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type UIConfig struct {
	Colors       UIColors `mapstructure:"colors"`
	PreviewStyle string   `mapstructure:"preview_style"`
	WordWrap     int      `mapstructure:"word_wrap"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Highlight string `mapstructure:"highlight"`
	Error     string `mapstructure:"error"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit          string `mapstructure:"quit"`
	Search        string `mapstructure:"search"`
	Files         string `mapstructure:"files"`
	Folders       string `mapstructure:"folders"`
	TogglePreview string `mapstructure:"toggle_preview"`
	Back          string `mapstructure:"back"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".typx")

	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://127.0.0.1:5000",
			HTTPTimeout: 30 * time.Second,
			UserAgent:   "typx/1.0 (https://github.com/pders01/typx)",
		},
		Workspace: WorkspaceConfig{
			Index:         filepath.Join(dataDir, "index.bleve"),
			Include:       []string{"**/*.md"},
			Exclude:       []string{".*/**", "**/.*"},
			Watch:         true,
			SnippetWindow: 100,
			ReadLimit:     10240,
		},
		Search: SearchConfig{
			Debounce:       300 * time.Millisecond,
			HighlightDwell: 2000 * time.Millisecond,
			DiscardStale:   true,
			HistorySize:    50,
		},
		Database: DatabaseConfig{
			Path:    filepath.Join(dataDir, "session.db"),
			Timeout: 1 * time.Second,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Highlight: "#FFE66D",
				Error:     "#EF4444",
			},
			PreviewStyle: "auto",
			WordWrap:     100,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:          "q",
				Search:        "s",
				Files:         "f",
				Folders:       "g",
				TogglePreview: "p",
				Back:          "esc",
			},
		},
		Log: LogConfig{
			Level: "off",
		},
	}
}

// flatten lists every leaf key so viper defaults, env overrides and the
// generated file all agree on the same key set.
func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"server.base_url":              cfg.Server.BaseURL,
		"server.http_timeout":          cfg.Server.HTTPTimeout.String(),
		"server.user_agent":            cfg.Server.UserAgent,
		"server.session_cookie":        cfg.Server.SessionCookie,
		"workspace.root":               cfg.Workspace.Root,
		"workspace.index":              cfg.Workspace.Index,
		"workspace.include":            cfg.Workspace.Include,
		"workspace.exclude":            cfg.Workspace.Exclude,
		"workspace.watch":              cfg.Workspace.Watch,
		"workspace.snippet_window":     cfg.Workspace.SnippetWindow,
		"workspace.read_limit":         cfg.Workspace.ReadLimit,
		"search.debounce":              cfg.Search.Debounce.String(),
		"search.highlight_dwell":       cfg.Search.HighlightDwell.String(),
		"search.discard_stale":         cfg.Search.DiscardStale,
		"search.history_size":          cfg.Search.HistorySize,
		"database.path":                cfg.Database.Path,
		"database.timeout":             cfg.Database.Timeout.String(),
		"ui.colors.primary":            cfg.UI.Colors.Primary,
		"ui.colors.secondary":          cfg.UI.Colors.Secondary,
		"ui.colors.accent":             cfg.UI.Colors.Accent,
		"ui.colors.text":               cfg.UI.Colors.Text,
		"ui.colors.muted":              cfg.UI.Colors.Muted,
		"ui.colors.highlight":          cfg.UI.Colors.Highlight,
		"ui.colors.error":              cfg.UI.Colors.Error,
		"ui.preview_style":             cfg.UI.PreviewStyle,
		"ui.word_wrap":                 cfg.UI.WordWrap,
		"keys.modifier":                cfg.Keys.Modifier,
		"keys.bindings.quit":           cfg.Keys.Bindings.Quit,
		"keys.bindings.search":         cfg.Keys.Bindings.Search,
		"keys.bindings.files":          cfg.Keys.Bindings.Files,
		"keys.bindings.folders":        cfg.Keys.Bindings.Folders,
		"keys.bindings.toggle_preview": cfg.Keys.Bindings.TogglePreview,
		"keys.bindings.back":           cfg.Keys.Bindings.Back,
		"log.level":                    cfg.Log.Level,
		"log.file":                     cfg.Log.File,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "typx", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range flatten(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TYPX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the search controller cannot work with.
func (c *Config) Validate() error {
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative")
	}
	if c.Search.HighlightDwell < 0 {
		return fmt.Errorf("search.highlight_dwell must not be negative")
	}
	if c.Workspace.Root == "" && strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("either server.base_url or workspace.root must be set")
	}
	return nil
}

// Offline reports whether the local workspace backend should be used.
func (c *Config) Offline() bool {
	return c.Workspace.Root != ""
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Workspace.Root = expandPath(cfg.Workspace.Root)
	cfg.Workspace.Index = expandPath(cfg.Workspace.Index)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// nest turns the flat key set back into TOML tables.
func nest(flat map[string]any) map[string]any {
	root := map[string]any{}
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return root
}

func Save(config *Config, path string) error {
	data, err := toml.Marshal(nest(flatten(config)))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
