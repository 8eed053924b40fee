// Package config is used to load the configuration file
package config

import (
	"fmt"
	"path/filepath"

	"github.com/blacktop/asmremap/internal/cache"
	"github.com/blacktop/asmremap/internal/download"
	"github.com/spf13/viper"
)

// remote fetches fail fast unless retries are asked for
const defaultAttempts = 1

// Mappings locates the tables the indices are built from
type Mappings struct {
	// tiny v2 archive (.jar) or bare .tiny file
	Tiny string `mapstructure:"tiny"`
	// local proguard table; fetched from the version manifest when empty
	Proguard string `mapstructure:"proguard"`
	// version id; derived from the tiny archive name when empty
	GameVersion string `mapstructure:"game-version"`
	// distribution whose proguard table to fetch
	// pattern: (client|server)
	Side string `mapstructure:"side"`
	// snapshot cache root
	Cache string `mapstructure:"cache"`
	// never read or write snapshots
	NoCache bool `mapstructure:"no-cache"`
}

// Download configures the version manifest client
type Download struct {
	ManifestURL string `mapstructure:"manifest-url"`
	Proxy       string `mapstructure:"proxy"`
	Insecure    bool   `mapstructure:"insecure"`
	Attempts    int    `mapstructure:"attempts"`
}

// Config is the configuration struct
type Config struct {
	Mappings Mappings `mapstructure:"mappings"`
	Download Download `mapstructure:"download"`
}

func (c *Config) verify() error {
	if _, err := download.ParseSide(c.Mappings.Side); err != nil {
		return fmt.Errorf("config: %v", err)
	}
	if c.Mappings.Side == "" {
		c.Mappings.Side = string(download.SideClient)
	}

	if c.Mappings.Cache == "" && !c.Mappings.NoCache {
		dir, err := cache.Dir()
		if err != nil {
			return fmt.Errorf("config: %v", err)
		}
		c.Mappings.Cache = dir
	} else if c.Mappings.Cache != "" {
		abs, err := filepath.Abs(c.Mappings.Cache)
		if err != nil {
			return fmt.Errorf("config: bad cache path %s: %v", c.Mappings.Cache, err)
		}
		c.Mappings.Cache = abs
	}

	if c.Download.ManifestURL == "" {
		c.Download.ManifestURL = download.DefaultManifestURL
	}
	if c.Download.Attempts <= 0 {
		c.Download.Attempts = defaultAttempts
	}

	return nil
}

// DownloadConfig returns the manifest client config
func (c *Config) DownloadConfig() *download.Config {
	return &download.Config{
		ManifestURL: c.Download.ManifestURL,
		Proxy:       c.Download.Proxy,
		Insecure:    c.Download.Insecure,
		Attempts:    c.Download.Attempts,
	}
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	var c *Config

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}
