package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-history-tool/internal/client"
)

// APIKeyEnv names the environment variable holding the OpenWeatherMap key.
const APIKeyEnv = "OPENWEATHERMAP_API_KEY"

// Config holds tool and server configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	HistoryAPIKey     string
	HistoryAPIURL     string
	HistoryAPITimeout time.Duration // 0 disables the per-call deadline

	RequestTimeout time.Duration

	RateLimitRPS   int // 0 disables the inbound limiter
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	LogLevel string
}

type fileConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	HistoryAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"history_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

type secretsFile struct {
	OpenWeatherMapAPIKey string `yaml:"openweathermap_api_key"`
}

// Load reads configuration rooted at the working directory, or CONFIG_ROOT when set.
func Load() (*Config, error) {
	root := os.Getenv("CONFIG_ROOT")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: get working directory: %w", err)
		}
		root = cwd
	}
	return LoadFrom(root)
}

// LoadFrom reads root/config/{ENV_NAME}.yaml (default dev) and root/config/secrets.yaml.
// A missing env file means defaults. The API key comes from OPENWEATHERMAP_API_KEY
// or the secrets file; an absent key is not an error, the upstream rejects it.
func LoadFrom(root string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	configPath := filepath.Join(root, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.HistoryAPIKey, err = loadAPIKey(root)
	if err != nil {
		return nil, err
	}

	cfg.HistoryAPIURL = strings.TrimSpace(os.Getenv("HISTORY_API_URL"))
	if cfg.HistoryAPIURL == "" {
		cfg.HistoryAPIURL = strings.TrimSpace(fc.HistoryAPI.URL)
	}
	if cfg.HistoryAPIURL == "" {
		cfg.HistoryAPIURL = client.DefaultHistoryURL
	}
	cfg.HistoryAPITimeout = parseDurationOrZero(fc.HistoryAPI.Timeout, 30*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 35*time.Second)

	cfg.RateLimitRPS = fc.Server.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Server.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = fc.Logging.Level
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKey(root string) (string, error) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}
	secretsPath := filepath.Join(root, "config", "secrets.yaml")
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return sec.OpenWeatherMapAPIKey, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is. A bare "0" is accepted.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n == 0 {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation and keeps the request deadline
// longer than the upstream deadline.
func validate(cfg *Config) error {
	if cfg.HistoryAPITimeout < 0 {
		return fmt.Errorf("history_api.timeout must not be negative")
	}
	if cfg.HistoryAPITimeout > 0 && cfg.RequestTimeout <= cfg.HistoryAPITimeout {
		cfg.RequestTimeout = cfg.HistoryAPITimeout + time.Second
	}
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", cfg.ServerPort)
	}
	if !strings.HasPrefix(cfg.HistoryAPIURL, "http://") && !strings.HasPrefix(cfg.HistoryAPIURL, "https://") {
		return fmt.Errorf("history_api.url must be an http(s) URL, got %q", cfg.HistoryAPIURL)
	}
	return nil
}
