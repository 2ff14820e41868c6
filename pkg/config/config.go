package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	SQLite   SQLiteConfig
	Upstream UpstreamConfig
	LLM      LLMConfig
	Cache    CacheConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	BodyLimit       int
	AllowedOrigins  string
	RateLimitPerMin int
	Development     bool
}

// OriginList splits the comma-separated allowed origins, dropping empties.
func (c ServerConfig) OriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

type SQLiteConfig struct {
	Path string
}

// UpstreamConfig points at the metrics provider that serves raw report
// payloads for cache refreshes.
type UpstreamConfig struct {
	BaseURL    string
	TimeoutSec int
}

type LLMConfig struct {
	Provider      string
	APIKey        string
	ModelPriority string
	TimeoutSec    int
}

// PriorityList splits the comma-separated model priority into an ordered
// slice, dropping empty entries. An empty result means no priority was
// configured anywhere.
func (c LLMConfig) PriorityList() []string {
	var models []string
	for _, m := range strings.Split(c.ModelPriority, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			models = append(models, m)
		}
	}
	return models
}

type CacheConfig struct {
	UpdateFrequency  map[string]int
	DefaultFrequency int
	SweepIntervalMin int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/marketing-insight")

	viper.SetEnvPrefix("MKT_INSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)
	viper.SetDefault("server.allowedOrigins", "")
	viper.SetDefault("server.rateLimitPerMin", 60)
	viper.SetDefault("server.development", false)

	viper.SetDefault("sqlite.path", "./data/insights.db")

	viper.SetDefault("upstream.baseURL", "http://localhost:9090")
	viper.SetDefault("upstream.timeoutSec", 30)

	viper.SetDefault("llm.provider", "gemini")
	// Every key needs a default or viper's Unmarshal never sees its env
	// override. The API key in particular only ever arrives via env.
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.modelPriority", "")
	viper.SetDefault("llm.timeoutSec", 60)

	// Refresh intervals in seconds per data type. Conversion data moves
	// faster than the rest; search console data updates daily upstream.
	viper.SetDefault("cache.updateFrequency.overview", 3600)
	viper.SetDefault("cache.updateFrequency.users", 3600)
	viper.SetDefault("cache.updateFrequency.sessions", 3600)
	viper.SetDefault("cache.updateFrequency.pageviews", 3600)
	viper.SetDefault("cache.updateFrequency.conversions", 1800)
	viper.SetDefault("cache.updateFrequency.traffic", 3600)
	viper.SetDefault("cache.updateFrequency.search-query", 86400)
	viper.SetDefault("cache.updateFrequency.search-page", 86400)
	viper.SetDefault("cache.updateFrequency.gtm-tags", 43200)
	viper.SetDefault("cache.updateFrequency.gtm-triggers", 43200)
	viper.SetDefault("cache.defaultFrequency", 3600)
	viper.SetDefault("cache.sweepIntervalMin", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
