package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where setup writes the configuration file.
const DefaultPath = "config/notary.yaml"

const (
	DefaultSessionTimeoutSeconds = 3600
	DefaultPasswordMinLength     = 8
	DefaultUploadMaxSizeBytes    = 5 << 20
	DefaultResetTokenTTLMinutes  = 60
)

// ErrNotConfigured is returned by Load when the file does not exist.
var ErrNotConfigured = errors.New("configuration file not found, run setup first")

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
	FromName string `yaml:"fromName"`
	Secure   bool   `yaml:"secure"`
}

// Config is built once at start and passed by value afterwards.
type Config struct {
	DBHost     string `yaml:"dbHost"`
	DBPort     int    `yaml:"dbPort"`
	DBName     string `yaml:"dbName"`
	DBUser     string `yaml:"dbUser"`
	DBPassword string `yaml:"dbPassword"`
	DBCharset  string `yaml:"dbCharset"`

	SystemName      string `yaml:"systemName"`
	DefaultLanguage string `yaml:"defaultLanguage"`
	Timezone        string `yaml:"timezone"`

	SessionTimeoutSeconds int      `yaml:"sessionTimeoutSeconds"`
	PasswordMinLength     int      `yaml:"passwordMinLength"`
	UploadMaxSizeBytes    int64    `yaml:"uploadMaxSizeBytes"`
	AllowedFileTypes      []string `yaml:"allowedFileTypes"`
	EncryptionKey         string   `yaml:"encryptionKey"`

	HTTPAddr             string     `yaml:"httpAddr"`
	RedisAddr            string     `yaml:"redisAddr"`
	RedisPassword        string     `yaml:"redisPassword"`
	SMTP                 SMTPConfig `yaml:"smtp"`
	BaseURL              string     `yaml:"baseURL"`
	ResetTokenTTLMinutes int        `yaml:"resetTokenTTLMinutes"`
}

// Load reads path, applies .env and environment overrides, fills defaults
// and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, ErrNotConfigured
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Config from YAML bytes plus the environment.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnvInt("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASS", cfg.RedisPassword)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.SessionTimeoutSeconds = getEnvInt("SESSION_TIMEOUT_SECONDS", cfg.SessionTimeoutSeconds)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnv("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.User = getEnv("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Pass = getEnv("SMTP_PASS", cfg.SMTP.Pass)
	cfg.SMTP.FromName = getEnv("SMTP_FROM_NAME", cfg.SMTP.FromName)
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		cfg.SMTP.Secure = strings.ToLower(v) == "true"
	}
}

// ApplyDefaults fills zero-valued fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.DBPort == 0 {
		cfg.DBPort = 5432
	}
	if cfg.DBCharset == "" {
		cfg.DBCharset = "UTF8"
	}
	if cfg.SystemName == "" {
		cfg.SystemName = "Notary Administration System"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.SessionTimeoutSeconds == 0 {
		cfg.SessionTimeoutSeconds = DefaultSessionTimeoutSeconds
	}
	if cfg.PasswordMinLength == 0 {
		cfg.PasswordMinLength = DefaultPasswordMinLength
	}
	if cfg.UploadMaxSizeBytes == 0 {
		cfg.UploadMaxSizeBytes = DefaultUploadMaxSizeBytes
	}
	if len(cfg.AllowedFileTypes) == 0 {
		cfg.AllowedFileTypes = []string{"pdf", "jpg", "jpeg", "png", "doc", "docx"}
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8000"
	}
	if cfg.SMTP.Port == "" {
		cfg.SMTP.Port = "587"
		if cfg.SMTP.Secure {
			cfg.SMTP.Port = "465"
		}
	}
	// 465 only speaks implicit TLS
	if cfg.SMTP.Port == "465" {
		cfg.SMTP.Secure = true
	}
	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = cfg.SystemName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.HTTPAddr
	}
	if cfg.ResetTokenTTLMinutes == 0 {
		cfg.ResetTokenTTLMinutes = DefaultResetTokenTTLMinutes
	}
}

// Validate checks required keys and ranges.
func (cfg *Config) Validate() error {
	var errs []string

	if cfg.DBHost == "" {
		errs = append(errs, "dbHost is required")
	}
	if cfg.DBName == "" {
		errs = append(errs, "dbName is required")
	}
	if cfg.DBUser == "" {
		errs = append(errs, "dbUser is required")
	}
	if cfg.DBPort < 1 || cfg.DBPort > 65535 {
		errs = append(errs, "dbPort must be between 1 and 65535")
	}
	if len(cfg.EncryptionKey) < 32 {
		errs = append(errs, "encryptionKey must be at least 32 characters")
	}
	if cfg.SessionTimeoutSeconds < 60 {
		errs = append(errs, "sessionTimeoutSeconds must be >= 60")
	}
	if cfg.PasswordMinLength < 6 {
		errs = append(errs, "passwordMinLength must be >= 6")
	}
	if cfg.ResetTokenTTLMinutes < 1 {
		errs = append(errs, "resetTokenTTLMinutes must be >= 1")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not a known location", cfg.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (cfg Config) SessionTimeout() time.Duration {
	return time.Duration(cfg.SessionTimeoutSeconds) * time.Second
}

func (cfg Config) ResetTokenTTL() time.Duration {
	return time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (cfg Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Write stores cfg at path with owner-only permissions. It never
// overwrites an existing file.
func Write(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}

// CheckWritable reports whether a config file could be created at path,
// creating its directory if needed.
func CheckWritable(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("config directory is not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Exists reports whether a configuration file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
