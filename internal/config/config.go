package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Dev struct {
		Mode bool `yaml:"mode"`
	} `yaml:"dev"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	LLM struct {
		GeminiKey       string `yaml:"gemini_key"`
		GeminiModel     string `yaml:"gemini_model"`
		OpenRouterKey   string `yaml:"openrouter_key"`
		OpenRouterModel string `yaml:"openrouter_model"`
	} `yaml:"llm"`
	OCR struct {
		EngineURL string `yaml:"engine_url"`
		Language  string `yaml:"language"`
	} `yaml:"ocr"`
	Storage struct {
		URL        string `yaml:"url"`
		ServiceKey string `yaml:"service_key"`
	} `yaml:"storage"`
	Meeting struct {
		BaseURL      string        `yaml:"base_url"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"meeting"`
	Security struct {
		TokenSigningKey string `yaml:"token_signing_key"`
	} `yaml:"security"`
}

const devSigningKey = "intelliclass-dev-insecure-key"

// SigningKey returns the token signing key to run with. Dev mode substitutes
// a built-in key so the service starts without one configured; outside dev
// mode a missing key refuses to start.
func (c Config) SigningKey() (string, error) {
	if c.Security.TokenSigningKey != "" {
		return c.Security.TokenSigningKey, nil
	}
	if !c.Dev.Mode {
		return "", errors.New("security.token_signing_key is required outside dev mode")
	}
	return devSigningKey, nil
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8090"
	cfg.Dev.Mode = true
	cfg.LLM.GeminiModel = "gemini-2.0-flash"
	cfg.LLM.OpenRouterModel = "meta-llama/llama-3.3-70b-instruct:free"
	cfg.OCR.Language = "eng"
	cfg.Meeting.BaseURL = "https://meet.jit.si"
	cfg.Meeting.PollInterval = 10 * time.Second
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("IC_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("IC_DEV_MODE"); v != "" {
		cfg.Dev.Mode = parseBool(v, cfg.Dev.Mode)
	}
	if v := os.Getenv("IC_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("IC_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("IC_GEMINI_API_KEY"); v != "" {
		cfg.LLM.GeminiKey = v
	}
	if v := os.Getenv("IC_GEMINI_MODEL"); v != "" {
		cfg.LLM.GeminiModel = v
	}
	if v := os.Getenv("IC_OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.OpenRouterKey = v
	}
	if v := os.Getenv("IC_OPENROUTER_MODEL"); v != "" {
		cfg.LLM.OpenRouterModel = v
	}
	if v := os.Getenv("IC_OCR_ENGINE_URL"); v != "" {
		cfg.OCR.EngineURL = v
	}
	if v := os.Getenv("IC_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
	if v := os.Getenv("IC_STORAGE_URL"); v != "" {
		cfg.Storage.URL = v
	}
	if v := os.Getenv("IC_STORAGE_SERVICE_KEY"); v != "" {
		cfg.Storage.ServiceKey = v
	}
	if v := os.Getenv("IC_MEETING_BASE_URL"); v != "" {
		cfg.Meeting.BaseURL = v
	}
	if v := os.Getenv("IC_MEETING_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Meeting.PollInterval = d
		}
	}
	if v := os.Getenv("IC_TOKEN_SIGNING_KEY"); v != "" {
		cfg.Security.TokenSigningKey = v
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
