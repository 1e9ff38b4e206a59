package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
)

// DBConfig points to the SQLite file, its directory is created on start.
type DBConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
}

func (config DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.connection_string", "./data/bot.db")
}

func (config DBConfig) validate() error {
	if strings.TrimSpace(config.ConnectionString) == "" {
		return fmt.Errorf("missing variable: db connection string")
	}
	if strings.HasSuffix(config.ConnectionString, "/") {
		return fmt.Errorf("db connection string must name a file, got directory %q", config.ConnectionString)
	}
	return nil
}

func (config DBConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("db.connection_string", "DB_CONNECTION_STRING")
}
