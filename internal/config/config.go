package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration. The pipeline and
// the results API read the same file; each validates only its own sections.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Logging      LoggingConfig      `yaml:"logging"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Identity     IdentityConfig     `yaml:"identity"`
	Registration RegistrationConfig `yaml:"registration"`
	Mailbox      MailboxConfig      `yaml:"mailbox"`
	Results      ResultsConfig      `yaml:"results"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableSource bool   `yaml:"enable_source"`
	NoColor      bool   `yaml:"no_color"`
}

// PipelineConfig holds stage tuning
type PipelineConfig struct {
	VerificationWorkers        int           `yaml:"verification_workers"`
	MaxAttempts                int           `yaml:"max_attempts"`
	RetryDelay                 time.Duration `yaml:"retry_delay"`
	RetryMode                  string        `yaml:"retry_mode"`
	RecordRegistrationFailures bool          `yaml:"record_registration_failures"`
	PersistAttempts            int           `yaml:"persist_attempts"`
	PersistRetryDelay          time.Duration `yaml:"persist_retry_delay"`
}

// IdentityConfig holds address generation settings
type IdentityConfig struct {
	EmailDomain string `yaml:"email_domain"`
	// Seed makes generated addresses reproducible; 0 picks a random seed
	Seed uint64 `yaml:"seed"`
}

// RegistrationConfig holds waitlist endpoint settings
type RegistrationConfig struct {
	Endpoint  string            `yaml:"endpoint"`
	Field     string            `yaml:"field"`
	Encoding  string            `yaml:"encoding"`
	Headers   map[string]string `yaml:"headers"`
	UserAgent string            `yaml:"user_agent"`
	Timeout   time.Duration     `yaml:"timeout"`
}

// MailboxConfig holds IMAP lookup settings
type MailboxConfig struct {
	Server      string        `yaml:"server"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Mailbox     string        `yaml:"mailbox"`
	From        string        `yaml:"from"`
	Subject     string        `yaml:"subject"`
	CodePattern string        `yaml:"code_pattern"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	Burst       int           `yaml:"burst"`
}

// ResultsConfig selects the result stores. The CSV file is always written;
// Postgres and RabbitMQ are added when enabled.
type ResultsConfig struct {
	CSVPath         string `yaml:"csv_path"`
	PostgresEnabled bool   `yaml:"postgres_enabled"`
	RabbitMQEnabled bool   `yaml:"rabbitmq_enabled"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// Load reads the configuration file, expands ${VAR} references from the
// environment and fills in defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.Pipeline.VerificationWorkers == 0 {
		c.Pipeline.VerificationWorkers = 5
	}
	if c.Pipeline.MaxAttempts == 0 {
		c.Pipeline.MaxAttempts = 10
	}
	if c.Pipeline.RetryDelay == 0 {
		c.Pipeline.RetryDelay = 2 * time.Second
	}
	if c.Pipeline.RetryMode == "" {
		c.Pipeline.RetryMode = "sleep"
	}
	if c.Pipeline.PersistAttempts == 0 {
		c.Pipeline.PersistAttempts = 3
	}
	if c.Pipeline.PersistRetryDelay == 0 {
		c.Pipeline.PersistRetryDelay = 500 * time.Millisecond
	}

	if c.Registration.Field == "" {
		c.Registration.Field = "email"
	}
	if c.Registration.Encoding == "" {
		c.Registration.Encoding = "json"
	}
	if c.Registration.Timeout == 0 {
		c.Registration.Timeout = 30 * time.Second
	}

	if c.Mailbox.Mailbox == "" {
		c.Mailbox.Mailbox = "INBOX"
	}
	if c.Mailbox.Timeout == 0 {
		c.Mailbox.Timeout = 30 * time.Second
	}
	if c.Mailbox.Burst == 0 {
		c.Mailbox.Burst = 1
	}

	if c.Results.CSVPath == "" {
		c.Results.CSVPath = "signups.csv"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9102"
	}

	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "topic"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "signup.completed"
	}
}

// ValidatePipelineConfig checks the sections used by the pipeline command
func (c *Config) ValidatePipelineConfig() error {
	if c.Pipeline.VerificationWorkers <= 0 {
		return fmt.Errorf("pipeline verification_workers must be greater than 0")
	}

	if c.Pipeline.MaxAttempts <= 0 {
		return fmt.Errorf("pipeline max_attempts must be greater than 0")
	}

	if c.Pipeline.RetryDelay < 0 {
		return fmt.Errorf("pipeline retry_delay must not be negative")
	}

	if c.Pipeline.RetryMode != "sleep" && c.Pipeline.RetryMode != "timer" {
		return fmt.Errorf("invalid pipeline retry_mode: %q (must be sleep or timer)", c.Pipeline.RetryMode)
	}

	if c.Identity.EmailDomain == "" {
		return fmt.Errorf("identity email_domain is required")
	}

	if c.Registration.Endpoint == "" {
		return fmt.Errorf("registration endpoint is required")
	}

	if u, err := url.Parse(c.Registration.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid registration endpoint: %q", c.Registration.Endpoint)
	}

	if c.Registration.Encoding != "json" && c.Registration.Encoding != "form" {
		return fmt.Errorf("invalid registration encoding: %q (must be json or form)", c.Registration.Encoding)
	}

	if c.Mailbox.Server == "" {
		return fmt.Errorf("mailbox server is required")
	}

	if _, _, err := net.SplitHostPort(c.Mailbox.Server); err != nil {
		return fmt.Errorf("invalid mailbox server: %q (must be host:port)", c.Mailbox.Server)
	}

	if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
		return fmt.Errorf("mailbox username and password are required")
	}

	if c.Mailbox.RateLimit < 0 {
		return fmt.Errorf("mailbox rate_limit must not be negative")
	}

	if c.Results.PostgresEnabled {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if c.Results.RabbitMQEnabled {
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateAPIConfig checks the sections used by the results API
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateDatabase()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	return nil
}
