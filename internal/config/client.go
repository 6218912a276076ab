package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ClientConfig configures the terminal history client.
type ClientConfig struct {
	ServerURL      string `toml:"server_url"`
	Locale         string `toml:"locale"`
	Username       string `toml:"username"`
	RefreshOnStart bool   `toml:"refresh_on_start"`
}

// ClientLoadResult carries the config plus non-fatal warnings such as
// unknown keys.
type ClientLoadResult struct {
	Config   ClientConfig
	Warnings []string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL:      "http://localhost:8081",
		Locale:         "en_US",
		RefreshOnStart: true,
	}
}

// DefaultClientConfigPath is ~/.config/centsible/history.toml.
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "history.toml"
	}
	return filepath.Join(dir, "centsible", "history.toml")
}

// LoadClientFrom reads path over the defaults. A missing file is not an
// error.
func LoadClientFrom(path string) (*ClientLoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ClientLoadResult{Config: DefaultClientConfig()}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadClientFromString(string(data))
}

func LoadClientFromString(data string) (*ClientLoadResult, error) {
	result := &ClientLoadResult{Config: DefaultClientConfig()}

	md, err := toml.Decode(data, &result.Config)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	for _, key := range md.Undecoded() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key.String()))
	}

	if err := result.Config.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid server_url %q: must be an absolute http(s) URL", c.ServerURL)
	}
	return nil
}
