package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type PipelineConfig struct {
	FeedURL                  string        `mapstructure:"feed_url"`
	FeedMaxRequestsPerSecond float32       `mapstructure:"feed_max_requests_per_second"`
	Interval                 time.Duration `mapstructure:"interval"`
	MaxAttempts              int           `mapstructure:"max_attempts"`
	MessageLimit             int           `mapstructure:"message_limit"`
	FanoutBatchSize          int           `mapstructure:"fanout_batch_size"`
	FastPathLimit            int           `mapstructure:"fast_path_limit"`
}

func (config PipelineConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.feed_url", "https://jobs.dou.ua/vacancies/feeds/")
	v.SetDefault("pipeline.feed_max_requests_per_second", 2)
	v.SetDefault("pipeline.interval", 5*time.Minute)
	v.SetDefault("pipeline.max_attempts", 10)
	v.SetDefault("pipeline.message_limit", 4096)
	v.SetDefault("pipeline.fanout_batch_size", 10)
	v.SetDefault("pipeline.fast_path_limit", 10)
}

func (config PipelineConfig) validate() error {
	var errs []error

	if config.FeedURL == "" {
		errs = append(errs, fmt.Errorf("missing variable: feed_url"))
	}
	if config.FeedMaxRequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("feed_max_requests_per_second must be positive"))
	}
	if config.Interval < time.Minute || config.Interval > 24*time.Hour {
		errs = append(errs, fmt.Errorf("interval must be between 1m and 24h, got %v", config.Interval))
	}
	if config.MaxAttempts <= 0 || config.MaxAttempts > 1000 {
		errs = append(errs, fmt.Errorf("max_attempts must be between 1 and 1000, got %d", config.MaxAttempts))
	}
	if config.MessageLimit < 256 {
		errs = append(errs, fmt.Errorf("message_limit is too small: %d", config.MessageLimit))
	}
	if config.FanoutBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("fanout_batch_size must be positive"))
	}
	if config.FastPathLimit <= 0 {
		errs = append(errs, fmt.Errorf("fast_path_limit must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}
	return nil
}

func (config PipelineConfig) bindEnvironmentVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"pipeline.feed_url":                     "FEED_URL",
		"pipeline.feed_max_requests_per_second": "FEED_MAX_REQUESTS_PER_SECOND",
		"pipeline.interval":                     "PIPELINE_INTERVAL",
		"pipeline.max_attempts":                 "DELIVERY_MAX_ATTEMPTS",
		"pipeline.message_limit":                "MESSAGE_LIMIT",
		"pipeline.fanout_batch_size":            "FANOUT_BATCH_SIZE",
		"pipeline.fast_path_limit":              "FAST_PATH_LIMIT",
	}

	var errs []error
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}
	return nil
}
