// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env support.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTransport    = "stdout"
	defaultQueueWorkers = 2
	defaultQueueSize    = 100
	defaultSMTPPort     = 587
	defaultIMAPMailbox  = "Drafts"
)

// Config holds the complete application configuration.
type Config struct {
	Transport string         `yaml:"transport"`
	Defaults  DefaultsConfig `yaml:"defaults"`
	Queue     QueueConfig    `yaml:"queue"`
	SES       SESConfig      `yaml:"ses"`
	Graph     GraphConfig    `yaml:"graph"`
	Postmark  PostmarkConfig `yaml:"postmark"`
	SMTP      SMTPConfig     `yaml:"smtp"`
	Mbox      MboxConfig     `yaml:"mbox"`
	IMAP      IMAPConfig     `yaml:"imap"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// DefaultsConfig holds values applied to every outgoing message.
type DefaultsConfig struct {
	From            string `yaml:"from"`
	MessageIDDomain string `yaml:"message_id_domain"`
}

// QueueConfig sizes the background delivery pool.
type QueueConfig struct {
	Workers int `yaml:"workers"`
	Size    int `yaml:"size"`
}

// SESConfig holds AWS SES v2 configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// PostmarkConfig holds Postmark API configuration.
type PostmarkConfig struct {
	ServerToken  string `yaml:"server_token"`
	AccountToken string `yaml:"account_token"`
	Sender       string `yaml:"sender"`
	Tag          string `yaml:"tag"`
	TrackOpens   bool   `yaml:"track_opens"`
}

// SMTPConfig holds the outbound SMTP relay configuration.
type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	Sender             string `yaml:"sender"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// MboxConfig holds the mbox file transport configuration.
type MboxConfig struct {
	Path string `yaml:"path"`
}

// IMAPConfig holds the IMAP drafts transport configuration.
type IMAPConfig struct {
	Addr      string `yaml:"addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Mailbox   string `yaml:"mailbox"`
	Plaintext bool   `yaml:"plaintext"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment. Variables that are already set win, and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// SESConfigured returns true if the SES region and sender are set.
// Credentials are optional and fall back to the default AWS chain.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// PostmarkConfigured returns true if a Postmark server token is set.
func (c *Config) PostmarkConfigured() bool {
	return c.Postmark.ServerToken != ""
}

// SMTPConfigured returns true if a relay host and port are set.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.Port > 0
}

// IMAPConfigured returns true if the IMAP address and credentials are set.
func (c *Config) IMAPConfigured() bool {
	return c.IMAP.Addr != "" && c.IMAP.Username != "" && c.IMAP.Password != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Transport = defaultTransport
	c.Queue.Workers = defaultQueueWorkers
	c.Queue.Size = defaultQueueSize
	c.SMTP.Port = defaultSMTPPort
	c.IMAP.Mailbox = defaultIMAPMailbox
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}

	setString(&c.Defaults.From, "DEFAULT_FROM")
	setString(&c.Defaults.MessageIDDomain, "MESSAGE_ID_DOMAIN")

	setInt(&c.Queue.Workers, "QUEUE_WORKERS")
	setInt(&c.Queue.Size, "QUEUE_SIZE")

	setString(&c.SES.Region, "SES_REGION")
	setString(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setString(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")
	setString(&c.SES.Sender, "SES_SENDER")

	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.Sender, "GRAPH_SENDER")

	setString(&c.Postmark.ServerToken, "POSTMARK_SERVER_TOKEN")
	setString(&c.Postmark.AccountToken, "POSTMARK_ACCOUNT_TOKEN")
	setString(&c.Postmark.Sender, "POSTMARK_SENDER")
	setString(&c.Postmark.Tag, "POSTMARK_TAG")
	setBool(&c.Postmark.TrackOpens, "POSTMARK_TRACK_OPENS")

	setString(&c.SMTP.Host, "SMTP_HOST")
	setInt(&c.SMTP.Port, "SMTP_PORT")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.Sender, "SMTP_SENDER")
	setBool(&c.SMTP.InsecureSkipVerify, "SMTP_INSECURE_SKIP_VERIFY")

	setString(&c.Mbox.Path, "MBOX_PATH")

	setString(&c.IMAP.Addr, "IMAP_ADDR")
	setString(&c.IMAP.Username, "IMAP_USERNAME")
	setString(&c.IMAP.Password, "IMAP_PASSWORD")
	setString(&c.IMAP.Mailbox, "IMAP_MAILBOX")
	setBool(&c.IMAP.Plaintext, "IMAP_PLAINTEXT")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse, keeping the current setting.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
