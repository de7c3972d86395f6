package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Calculator CalculatorConfig
	Sheets     SheetsConfig
	Browser    BrowserConfig
	Search     SearchConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Queue      QueueConfig
	Logging    LoggingConfig
}

// CalculatorConfig drives the margin extraction loop against the FBA
// profitability calculator.
type CalculatorConfig struct {
	URL           string
	CookieFile    string
	MarginColumn  int
	RetryAttempts int
	RetryDelay    time.Duration
	SettleWait    time.Duration
	InputWait     time.Duration
	ExtractWait   time.Duration
	SelectWait    time.Duration
	MaxAlternates int
}

type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Worksheet       string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type SearchConfig struct {
	BaseURL    string
	DelayMin   time.Duration
	DelayMax   time.Duration
	UserAgents []string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type QueueConfig struct {
	Type      string
	RedisAddr string
	RedisKey  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Calculator: CalculatorConfig{
			URL:           getEnvOrDefault("CALCULATOR_URL", "https://sellercentral.amazon.co.uk/hz/fba/profitabilitycalculator/index?lang=en_GB"),
			CookieFile:    getEnvOrDefault("CALCULATOR_COOKIE_FILE", "sellercentral.amazon.co.uk_json.json"),
			MarginColumn:  getIntOrDefault("CALCULATOR_MARGIN_COLUMN", 3),
			RetryAttempts: getIntOrDefault("CALCULATOR_RETRY_ATTEMPTS", 3),
			RetryDelay:    getDurationOrDefault("CALCULATOR_RETRY_DELAY", 2*time.Second),
			SettleWait:    getDurationOrDefault("CALCULATOR_SETTLE_WAIT", 7*time.Second),
			InputWait:     getDurationOrDefault("CALCULATOR_INPUT_WAIT", 5*time.Second),
			ExtractWait:   getDurationOrDefault("CALCULATOR_EXTRACT_WAIT", 15*time.Second),
			SelectWait:    getDurationOrDefault("CALCULATOR_SELECT_WAIT", 5*time.Second),
			MaxAlternates: getIntOrDefault("CALCULATOR_MAX_ALTERNATES", 5),
		},
		Sheets: SheetsConfig{
			CredentialsFile: getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", ""),
			SpreadsheetID:   getEnvOrDefault("SPREADSHEET_ID", ""),
			Worksheet:       getEnvOrDefault("SPREADSHEET_WORKSHEET", "ASINs"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-GB,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/London"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-GB"),
		},
		Search: SearchConfig{
			BaseURL:    getEnvOrDefault("SEARCH_BASE_URL", "https://www.amazon.co.uk"),
			DelayMin:   getDurationOrDefault("SEARCH_DELAY_MIN", 2*time.Second),
			DelayMax:   getDurationOrDefault("SEARCH_DELAY_MAX", 5*time.Second),
			UserAgents: getStringSliceOrDefault("SEARCH_USER_AGENTS", defaultUserAgents()),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "margin_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Queue: QueueConfig{
			Type:      getEnvOrDefault("QUEUE_TYPE", "memory"),
			RedisAddr: getEnvOrDefault("QUEUE_REDIS_ADDR", "localhost:6379"),
			RedisKey:  getEnvOrDefault("QUEUE_REDIS_KEY", "margin_scraper:runs"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Calculator.MarginColumn < 1 {
		return fmt.Errorf("CALCULATOR_MARGIN_COLUMN must be at least 1")
	}

	if c.Calculator.RetryAttempts < 1 {
		return fmt.Errorf("CALCULATOR_RETRY_ATTEMPTS must be at least 1")
	}

	if c.Calculator.MaxAlternates < 1 {
		return fmt.Errorf("CALCULATOR_MAX_ALTERNATES must be at least 1")
	}

	if c.Search.DelayMin > c.Search.DelayMax {
		return fmt.Errorf("SEARCH_DELAY_MIN cannot be greater than SEARCH_DELAY_MAX")
	}

	switch c.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("QUEUE_TYPE must be memory or redis, got %q", c.Queue.Type)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}
