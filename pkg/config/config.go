package config

import "time"

// Client definition giveback_cli YAML structure
type Client struct {
	API   APIConfig   `mapstructure:"api"`
	Live  LiveConfig  `mapstructure:"live"`
	Store StoreConfig `mapstructure:"store"`
}

// APIConfig definition REST backend setting
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LiveConfig definition live channel setting
// 重連策略: 固定間隔、有限次數，交由 transport 處理
type LiveConfig struct {
	URL               string        `mapstructure:"url"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// StoreConfig definition local persisted state setting
type StoreConfig struct {
	Path    string `mapstructure:"path"`
	KeyPath string `mapstructure:"key_path"`
}
