package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the insights service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Vertex    VertexConfig    `yaml:"vertex"`
	Logging   LoggingConfig   `yaml:"logging"`
	Playbooks PlaybooksConfig `yaml:"playbooks"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// WarehouseConfig configures access to the incident warehouse query APIs.
type WarehouseConfig struct {
	BaseURL           string        `yaml:"baseURL"`
	DailyCountsPath   string        `yaml:"dailyCountsPath"`
	IncidentsPath     string        `yaml:"incidentsPath"`
	RollupPath        string        `yaml:"rollupPath"`
	TrendsPath        string        `yaml:"trendsPath"`
	EvidencePath      string        `yaml:"evidencePath"`
	FeedbackPath      string        `yaml:"feedbackPath"`
	Timeout           time.Duration `yaml:"timeout"`
	TrendsWindowDays  int           `yaml:"trendsWindowDays"`
	AnomalyWindowDays int           `yaml:"anomalyWindowDays"`
	ForecastWindow    int           `yaml:"forecastWindowDays"`
}

// VertexConfig configures the hosted generative endpoint.
type VertexConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PlaybooksConfig controls playbook template pack loading.
type PlaybooksConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Valkey-backed caching of warehouse aggregates.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	MaxRetries     int           `yaml:"maxRetries"`
	TLS            bool          `yaml:"tls"`
	DailyCountsTTL time.Duration `yaml:"dailyCountsTTL"`
	RollupTTL      time.Duration `yaml:"rollupTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SI2A_INSIGHTS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Warehouse: WarehouseConfig{
			DailyCountsPath:   "/api/v1/query/daily-counts",
			IncidentsPath:     "/api/v1/incidents",
			RollupPath:        "/api/v1/query/severity-rollup",
			TrendsPath:        "/api/v1/query/trends",
			EvidencePath:      "/api/v1/evidence",
			FeedbackPath:      "/api/v1/feedback",
			Timeout:           5 * time.Second,
			TrendsWindowDays:  30,
			AnomalyWindowDays: 60,
			ForecastWindow:    60,
		},
		Vertex:    VertexConfig{Timeout: 10 * time.Second},
		Logging:   LoggingConfig{Level: "info", JSON: false},
		Playbooks: PlaybooksConfig{Path: "configs/playbooks/default.yaml"},
		Cache: CacheConfig{
			Enabled:        false,
			DailyCountsTTL: 2 * time.Minute,
			RollupTTL:      5 * time.Minute,
			DialTimeout:    2 * time.Second,
			ReadTimeout:    500 * time.Millisecond,
			WriteTimeout:   500 * time.Millisecond,
			MaxRetries:     2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SI2A_INSIGHTS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_BASE_URL"); v != "" {
		cfg.Warehouse.BaseURL = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_DAILY_COUNTS_PATH"); v != "" {
		cfg.Warehouse.DailyCountsPath = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_INCIDENTS_PATH"); v != "" {
		cfg.Warehouse.IncidentsPath = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_ROLLUP_PATH"); v != "" {
		cfg.Warehouse.RollupPath = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_TRENDS_PATH"); v != "" {
		cfg.Warehouse.TrendsPath = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_EVIDENCE_PATH"); v != "" {
		cfg.Warehouse.EvidencePath = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_WAREHOUSE_FEEDBACK_PATH"); v != "" {
		cfg.Warehouse.FeedbackPath = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_TRENDS_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Warehouse.TrendsWindowDays = n
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_ANOMALY_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Warehouse.AnomalyWindowDays = n
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_FORECAST_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Warehouse.ForecastWindow = n
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_VERTEX_ENDPOINT"); v != "" {
		cfg.Vertex.Endpoint = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_VERTEX_API_KEY"); v != "" {
		cfg.Vertex.APIKey = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SI2A_INSIGHTS_PLAYBOOKS_PATH"); v != "" {
		cfg.Playbooks.Path = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_DAILY_COUNTS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DailyCountsTTL = d
		}
	}
	if v := os.Getenv("SI2A_INSIGHTS_CACHE_ROLLUP_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.RollupTTL = d
		}
	}
}
