package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries the shared settings for every portalchat process.
// Broker and host lists arrive as comma-separated strings in the
// environment and are split into the derived fields.
type Config struct {
	Env              string `mapstructure:"env"`
	GatewayAddr      string `mapstructure:"gateway_addr"`
	APIAddr          string `mapstructure:"api_addr"`
	RedisAddr        string `mapstructure:"redis_addr"`
	KafkaBrokersList string `mapstructure:"kafka_brokers"`
	ActivityTopic    string `mapstructure:"activity_topic"`
	ScyllaHostsList  string `mapstructure:"scylla_hosts"`
	Keyspace         string `mapstructure:"keyspace"`
	JWTSecret        string `mapstructure:"jwt_secret"`

	TypingThrottleSeconds int `mapstructure:"typing_throttle_seconds"`
	TypingQuietSeconds    int `mapstructure:"typing_quiet_seconds"`

	// derived
	KafkaBrokers   []string
	ScyllaHosts    []string
	TypingThrottle time.Duration
	TypingQuiet    time.Duration
}

// Load reads configuration from the environment, falling back to the
// defaults below. An optional config file path may be given.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("gateway_addr", ":8080")
	v.SetDefault("api_addr", ":8081")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("kafka_brokers", "localhost:19092")
	v.SetDefault("activity_topic", "chat-activity")
	v.SetDefault("scylla_hosts", "localhost:9042")
	v.SetDefault("keyspace", "portalchat")
	v.SetDefault("jwt_secret", "dev_only_secret")
	v.SetDefault("typing_throttle_seconds", 2)
	v.SetDefault("typing_quiet_seconds", 2)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	c.KafkaBrokers = splitList(c.KafkaBrokersList)
	c.ScyllaHosts = splitList(c.ScyllaHostsList)

	c.TypingThrottle = time.Duration(c.TypingThrottleSeconds) * time.Second
	c.TypingQuiet = time.Duration(c.TypingQuietSeconds) * time.Second
	return &c, nil
}

func (c *Config) Development() bool {
	return c.Env != "production"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
