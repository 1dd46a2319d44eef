package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	DiscoveryURL   string        `mapstructure:"discovery_url"`
	TitleID        string        `mapstructure:"title_id"`
	Channel        string        `mapstructure:"channel"`
	MaxMembers     int           `mapstructure:"max_members"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TokenEnv       string        `mapstructure:"token_env"`
	AccountID      string        `mapstructure:"account_id"`
	GroupID        string        `mapstructure:"group_id"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("api_base_url", "https://m.np.playstation.net")
	v.SetDefault("discovery_url", "https://mobile-pushcl.np.communication.playstation.net/np/serveraddr?version=2.1&fields=keepAliveStatus&keepAliveStatusType=3")
	v.SetDefault("title_id", "METROPOL_IOS")
	v.SetDefault("channel", "miranda:12")
	v.SetDefault("max_members", 16)
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("token_env", "PSN_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
