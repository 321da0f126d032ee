package config

import "time"

// TestConfig returns a config suitable for testing: short timings, no
// session database and no background watcher.
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Server.BaseURL = "http://127.0.0.1:0"
	cfg.Server.HTTPTimeout = 5 * time.Second
	cfg.Server.UserAgent = "typx-test/1.0"
	cfg.Workspace.Index = ""
	cfg.Workspace.Watch = false
	cfg.Search.Debounce = 10 * time.Millisecond
	cfg.Search.HighlightDwell = 20 * time.Millisecond
	cfg.Database.Path = ""
	cfg.Log.Level = "off"
	return cfg
}
