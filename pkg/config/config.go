package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	xutil "github.com/sourav-625/market-regime-radar/pkg/util"
)

const (
	ProviderFinnhub = "finnhub"
	ProviderEODHD   = "eodhd"

	EstimatorLocal  = "local"
	EstimatorRemote = "remote"

	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig     `yaml:"server"`
	Logging     LoggingConfig    `yaml:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	MarketData  MarketDataConfig `yaml:"market_data"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
	Cache       CacheConfig      `yaml:"cache"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	// Browser origins allowed to open /ws/analysis. Empty means same host only.
	WSAllowedOrigins []string `yaml:"ws_allowed_origins"`
}

type LoggingConfig struct {
	Level            string        `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format           string        `yaml:"format" default:"console" validate:"oneof=console json"`
	Output           string        `yaml:"output" default:"stdout" validate:"required"`
	CollectTopic     string        `yaml:"collect_topic"`
	CollectInterval  time.Duration `yaml:"collect_interval" default:"30s"`
	CollectThreshold int           `yaml:"collect_threshold" default:"100" validate:"gte=1"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type MarketDataConfig struct {
	Provider string        `yaml:"provider" default:"finnhub" validate:"oneof=finnhub eodhd"`
	Timeout  time.Duration `yaml:"timeout" default:"10s"`
	Finnhub  FinnhubConfig `yaml:"finnhub"`
	EODHD    EODHDConfig   `yaml:"eodhd"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

type FinnhubConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"url"`
}

type EODHDConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url" default:"https://eodhd.com/api" validate:"url"`
	DefaultExchange string  `yaml:"default_exchange" default:"US"`
	RateLimit       float64 `yaml:"rate_limit" default:"5" validate:"gt=0"`
	Burst           int     `yaml:"burst" default:"5" validate:"gte=1"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" default:"5" validate:"gte=1"`
	OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
	Interval    time.Duration `yaml:"interval" default:"60s"`
}

type AnalysisConfig struct {
	DefaultSymbol  string                `yaml:"default_symbol" default:"AAPL"`
	DefaultPeriod  string                `yaml:"default_period" default:"2y" validate:"oneof=6mo 1y 2y 5y"`
	DefaultRegimes int                   `yaml:"default_regimes" default:"3" validate:"gte=2,lte=5"`
	Estimator      string                `yaml:"estimator" default:"local" validate:"oneof=local remote"`
	MaxIter        int                   `yaml:"max_iter" default:"1000" validate:"gte=1"`
	Tolerance      float64               `yaml:"tol" default:"0.01" validate:"gt=0"`
	Seed           int64                 `yaml:"seed" default:"42"`
	MinVariance    float64               `yaml:"min_variance" default:"1e-8" validate:"gt=0"`
	IncludePath    bool                  `yaml:"include_path" default:"true"`
	Remote         RemoteEstimatorConfig `yaml:"remote"`
	RateLimit      RateLimitConfig       `yaml:"rate_limit"`
}

type RemoteEstimatorConfig struct {
	URL        string        `yaml:"url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
	MaxRetries int           `yaml:"max_retries" default:"3" validate:"gte=0"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"2" validate:"gt=0"`
	Burst   int     `yaml:"burst" default:"5" validate:"gte=1"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
	TTL           time.Duration `yaml:"ttl" default:"15m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"256" validate:"gte=1"`
	MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"5m" validate:"gt=0"`
	Redis         RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"regimeradar"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"regimeradar"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool                `yaml:"enabled"`
	Brokers      []string            `yaml:"brokers" default:"[\"localhost:9092\"]"`
	ReportTopic  string              `yaml:"report_topic" default:"regime.reports"`
	RequestTopic string              `yaml:"request_topic"`
	RequiredAcks int                 `yaml:"required_acks" default:"-1"`
	Compression  string              `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer     KafkaProducerConfig `yaml:"producer"`
	Consumer     KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	Linger       time.Duration `yaml:"linger" default:"10ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

type KafkaConsumerConfig struct {
	GroupID    string        `yaml:"group_id" default:"regimeradar"`
	Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
	BufferSize int           `yaml:"buffer_size" default:"64" validate:"gte=1"`
	RetryMax   int           `yaml:"retry_max" default:"2" validate:"gte=0"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
}

var validate = validator.New()

// Parse decodes YAML on top of the struct defaults without validating.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies a .env file if present, and
// overrides with environment variables before validating.
func LoadWithEnv(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.MarketData.Finnhub.APIKey = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		c.MarketData.EODHD.APIKey = v
	}
	if v := os.Getenv("MARKET_DATA_PROVIDER"); v != "" {
		c.MarketData.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ANALYTICS_ESTIMATOR"); v != "" {
		c.Analysis.Estimator = strings.ToLower(v)
	}
	if v := os.Getenv("ANALYTICS_REMOTE_URL"); v != "" {
		c.Analysis.Remote.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = xutil.SplitAndTrim(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	switch c.MarketData.Provider {
	case ProviderFinnhub:
		if c.MarketData.Finnhub.APIKey == "" {
			return fmt.Errorf("market_data.finnhub.api_key is required")
		}
	case ProviderEODHD:
		if c.MarketData.EODHD.APIKey == "" {
			return fmt.Errorf("market_data.eodhd.api_key is required")
		}
	}
	if c.Analysis.Estimator == EstimatorRemote && c.Analysis.Remote.URL == "" {
		return fmt.Errorf("analysis.remote.url is required when analysis.estimator is 'remote'")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Logging.CollectTopic != "" && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collect_topic requires kafka.enabled")
	}
	if c.Cache.Enabled && c.Cache.Backend != CacheMemory && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for backend '%s'", c.Cache.Backend)
	}
	return nil
}
