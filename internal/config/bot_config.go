package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
)

type BotConfig struct {
	Token                string  `mapstructure:"token"`
	AdminChatIDs         []int64 `mapstructure:"admin_chat_ids"`
	MaxMessagesPerSecond float32 `mapstructure:"max_messages_per_second"`
}

func (config BotConfig) validate() error {

	var missingFields []string

	if config.Token == "" {
		missingFields = append(missingFields, "token")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	if config.MaxMessagesPerSecond <= 0 {
		return fmt.Errorf("max_messages_per_second must be positive")
	}

	return nil
}

func (config BotConfig) bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error
	if err := v.BindEnv("bot.token", "TG_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := v.BindEnv("bot.admin_chat_ids", "ADMIN_CHAT_IDS"); err != nil {
		errs = append(errs, err)
	}

	if err := v.BindEnv("bot.max_messages_per_second", "TG_MAX_MESSAGES_PER_SECOND"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
