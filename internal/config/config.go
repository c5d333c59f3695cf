package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"limitbot/pkg/crypto"
)

// Драйверы хранилища
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Security SecurityConfig
	Monitor  MonitorConfig
	Exchange ExchangeConfig
	Mail     MailConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string

	// AllowedOrigins - origin'ы для /ws через запятую, пусто - любые
	AllowedOrigins string

	ShutdownTimeout time.Duration
}

// StorageConfig - где хранятся пользователи и ордера
type StorageConfig struct {
	Driver  string // file, postgres, memory
	DataDir string // каталог для file
}

// DatabaseConfig - настройки подключения к PostgreSQL (STORAGE_DRIVER=postgres)
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// EncryptionKey - ключ AES-256 для API ключей бирж.
	// Пустой ключ включает passthrough (секреты хранятся как есть).
	EncryptionKey string

	// APITokenHash - bcrypt-хеш bearer токена HTTP API.
	// Пустое значение отключает авторизацию (только для локального запуска).
	APITokenHash string
}

// MonitorConfig - настройки монитора лимитных ордеров
type MonitorConfig struct {
	Interval      time.Duration // период опроса
	OrderTimeout  time.Duration // таймаут вызова биржи
	OracleTimeout time.Duration // таймаут запроса цены
}

// ExchangeConfig - настройки клиентов бирж
type ExchangeConfig struct {
	RateLimit      float64 // запросов в секунду на биржу
	RateBurst      float64
	BinanceBaseURL string // пусто = боевой API
	BybitBaseURL   string
}

// MailConfig - SMTP для уведомлений по e-mail. Пустой Host отключает канал.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled сообщает, настроен ли SMTP
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load загружает конфигурацию из переменных окружения.
// Если рядом лежит .env, его значения подставляются в окружение
// (уже заданные переменные не перезаписываются).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),

			AllowedOrigins:  getEnv("ALLOWED_ORIGINS", ""),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Driver:  strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "limitbot"),
			User:     getEnv("DB_USER", "limitbot"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			APITokenHash:  getEnv("API_TOKEN_HASH", ""),
		},
		Monitor: MonitorConfig{
			Interval:      getEnvAsDuration("MONITOR_INTERVAL", 15*time.Second),
			OrderTimeout:  getEnvAsDuration("ORDER_TIMEOUT", 10*time.Second),
			OracleTimeout: getEnvAsDuration("ORACLE_TIMEOUT", 5*time.Second),
		},
		Exchange: ExchangeConfig{
			RateLimit:      getEnvAsFloat("EXCHANGE_RATE_LIMIT", 10),
			RateBurst:      getEnvAsFloat("EXCHANGE_RATE_BURST", 20),
			BinanceBaseURL: getEnv("BINANCE_BASE_URL", ""),
			BybitBaseURL:   getEnv("BYBIT_BASE_URL", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки
func (c *Config) Validate() error {
	return errors.Join(
		c.validateSecurity(),
		c.validateStorage(),
		c.validateRanges(),
	)
}

// validateSecurity проверяет параметры безопасности.
// Отсутствие ENCRYPTION_KEY допустимо (passthrough), неверная длина - нет.
func (c *Config) validateSecurity() error {
	if c.Security.EncryptionKey != "" {
		if _, err := crypto.ParseKey(c.Security.EncryptionKey); err != nil {
			return fmt.Errorf("ENCRYPTION_KEY must be 32 raw bytes or base64 of 32 bytes: %w", err)
		}
	}

	if c.Security.APITokenHash != "" {
		if err := crypto.ValidateHash(c.Security.APITokenHash); err != nil {
			return fmt.Errorf("API_TOKEN_HASH must be a bcrypt hash: %w", err)
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for file storage")
		}
	case StoragePostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of file, postgres, memory, got %q", c.Storage.Driver)
	}
	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Storage.Driver == StoragePostgres && (c.Database.Port < 1 || c.Database.Port > 65535) {
		errs = append(errs, fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port))
	}

	if c.Server.UseHTTPS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		errs = append(errs, fmt.Errorf("CERT_FILE and KEY_FILE are required when USE_HTTPS is set"))
	}

	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout))
	}

	if c.Monitor.Interval < time.Second {
		errs = append(errs, fmt.Errorf("MONITOR_INTERVAL must be at least 1s, got %v", c.Monitor.Interval))
	}

	if c.Monitor.OrderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ORDER_TIMEOUT must be positive, got %v", c.Monitor.OrderTimeout))
	}

	if c.Monitor.OracleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ORACLE_TIMEOUT must be positive, got %v", c.Monitor.OracleTimeout))
	}

	if c.Exchange.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("EXCHANGE_RATE_LIMIT must be positive, got %v", c.Exchange.RateLimit))
	}

	if c.Mail.Enabled() && c.Mail.From == "" {
		errs = append(errs, fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set"))
	}

	return errors.Join(errs...)
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
