package config

import (
	"fmt"
	"strings"
)

type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Model        ModelConfig             `mapstructure:"model"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	API          APIConfig               `mapstructure:"api"`
	Auth         AuthConfig              `mapstructure:"auth"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GetDSN sets WAL journaling and a busy timeout so readers wait for the
// single writer instead of failing.
func (s SQLiteConfig) GetDSN() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", s.Path)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type ModelConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"`
	RemoteURL    string `mapstructure:"remote_url"`
	RemoteAPIKey string `mapstructure:"remote_api_key"`
	// Version is reported for remote models; artifacts carry their own.
	Version string `mapstructure:"version"`
	Timeout int    `mapstructure:"timeout"` // milliseconds, remote only
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type APIConfig struct {
	Address   string   `mapstructure:"address"`
	APIKeys   []string `mapstructure:"api_keys"`
	JWTSecret string   `mapstructure:"jwt_secret"`
	TokenTTL  int      `mapstructure:"token_ttl"` // minutes
}

type AuthConfig struct {
	Users []UserConfig `mapstructure:"users"`
}

// UserConfig is one row of the credential table. PasswordHash is bcrypt.
type UserConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
	DisplayName  string `mapstructure:"display_name"`
	Branch       string `mapstructure:"branch"`
}

type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled          bool     `mapstructure:"enabled"`
			FromEmail        string   `mapstructure:"from_email"`
			ReportRecipients []string `mapstructure:"report_recipients"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type CacheConfig struct {
	SummaryTTL int `mapstructure:"summary_ttl"` // seconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (d DatabaseConfig) normalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(d.Driver))
}
