package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/openmined/syncbox/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".syncbox", "config.json")
	DefaultDataDir    = filepath.Join(home, "SyncBox")
	DefaultServerURL  = "https://syncboxdev.openmined.org"
)

type Config struct {
	DataDir     string `json:"data_dir"`
	ServerURL   string `json:"server_url"`
	AccessToken string `json:"access_token"`
	Path        string `json:"-"`
}

// Validate normalizes paths and checks that the config is usable for a run.
func (c *Config) Validate() error {
	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	c.DataDir = dataDir

	if err := utils.EnsureDir(c.DataDir); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q is not a valid http(s) url", c.ServerURL)
	}

	if c.AccessToken == "" {
		return fmt.Errorf("access token missing (set SYNCBOX_ACCESS_TOKEN or add it to the config file)")
	}

	if c.Path != "" {
		path, err := utils.ResolvePath(c.Path)
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		c.Path = path
	}

	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	return &cfg, nil
}
