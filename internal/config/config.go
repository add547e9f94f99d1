package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	// Embedded zone data keeps Europe/Kyiv resolvable in minimal containers.
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the outage watcher. It is loaded once at
// startup and threaded into the components that need it.
type Config struct {
	// Source describes the outage-schedule page.
	Source SourceConfig `yaml:"source"`
	// Addresses are the monitored address names; rows match by substring.
	Addresses []string `yaml:"addresses"`
	// Groups maps an address prefix to its distribution group.
	Groups map[string]string `yaml:"groups,omitempty"`
	// PollInterval is the delay between scheduled poll cycles.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Timeout bounds every network call (source, Telegram, Kafka).
	Timeout time.Duration `yaml:"timeout"`
	// Timezone is the IANA zone used to pair boundary clocks with dates.
	Timezone string `yaml:"timezone"`
	// HistoryFile is the path to the event history JSON.
	HistoryFile string `yaml:"history_file"`
	// RenderedFile is the path to the last-sent messages JSON.
	RenderedFile string `yaml:"rendered_file"`
	// GRPCAddress is where the manual trigger and health services listen. Empty disables them.
	GRPCAddress string `yaml:"grpc_addr,omitempty"`
	// HTTPAddress is where the status API and metrics listen. Empty disables them.
	HTTPAddress string `yaml:"http_addr,omitempty"`
	// Telegram configures the notification channel and chat commands.
	Telegram TelegramConfig `yaml:"telegram"`
	// Kafka configures the optional event feed.
	Kafka KafkaConfig `yaml:"kafka,omitempty"`
	// Log configures logging.
	Log LogConfig `yaml:"log,omitempty"`
	// Classifier overrides the status tokens.
	Classifier ClassifierConfig `yaml:"classifier,omitempty"`
}

// SourceConfig describes the upstream page.
type SourceConfig struct {
	// URL of the page with the outage table.
	URL string `yaml:"url"`
	// UserAgent sent with every request.
	UserAgent string `yaml:"user_agent,omitempty"`
}

// TelegramConfig configures the Bot API transport.
type TelegramConfig struct {
	// Token is the bot credential. OUTAGE_WATCH_TELEGRAM_TOKEN overrides it.
	Token string `yaml:"token,omitempty"`
	// ChannelID is the target chat. OUTAGE_WATCH_TELEGRAM_CHANNEL overrides it.
	ChannelID string `yaml:"channel_id,omitempty"`
	// AdminID restricts chat commands to one user when non-zero.
	AdminID int64 `yaml:"admin_id,omitempty"`
	// Commands enables the /start keyboard and the check-now callback.
	Commands bool `yaml:"commands,omitempty"`
	// APIURL overrides the Bot API base URL.
	APIURL string `yaml:"api_url,omitempty"`
}

// Enabled reports whether enough is configured to deliver notifications.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChannelID != ""
}

// KafkaConfig configures the event feed.
type KafkaConfig struct {
	// Brokers is the bootstrap list. Empty disables the feed.
	Brokers []string `yaml:"brokers,omitempty"`
	// Topic receives one message per appended event.
	Topic string `yaml:"topic,omitempty"`
}

// Enabled reports whether the feed is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`
	// File is a strftime pattern for a rotating log file. Empty logs to stdout only.
	File string `yaml:"file,omitempty"`
	// MaxAge is how long rotated files are kept.
	MaxAge time.Duration `yaml:"max_age,omitempty"`
	// RotationTime is how often the file rotates.
	RotationTime time.Duration `yaml:"rotation_time,omitempty"`
}

// ClassifierConfig overrides the classifier vocabulary.
type ClassifierConfig struct {
	// ActiveTokens are matched case-sensitively.
	ActiveTokens []string `yaml:"active_tokens,omitempty"`
	// DisconnectedTokens are matched case-insensitively.
	DisconnectedTokens []string `yaml:"disconnected_tokens,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "outage-watch.yaml"

	// DefaultHistoryFilename is the default filename for the event history.
	DefaultHistoryFilename = "outage-history.json"

	// DefaultRenderedFilename is the default filename for the last sent messages.
	DefaultRenderedFilename = "outage-rendered.json"

	// DefaultSourceURL is the shutdown schedule page.
	DefaultSourceURL = "https://www.dtek-oem.com.ua/ua/shutdowns"

	// DefaultUserAgent is sent to the source; the page rejects bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// DefaultPollInterval is the delay between scheduled cycles.
	DefaultPollInterval = 30 * time.Second

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 10 * time.Second

	// DefaultTimezone is where the source prints its clocks.
	DefaultTimezone = "Europe/Kyiv"

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600

	// EnvTelegramToken overrides Telegram.Token.
	EnvTelegramToken = "OUTAGE_WATCH_TELEGRAM_TOKEN"

	// EnvTelegramChannel overrides Telegram.ChannelID.
	EnvTelegramChannel = "OUTAGE_WATCH_TELEGRAM_CHANNEL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAddressesRequired is returned when nothing is monitored.
	errAddressesRequired = errors.New("at least one monitored address must be provided")
	// errKafkaTopicRequired is returned when brokers are set without a topic.
	errKafkaTopicRequired = errors.New("kafka topic must be provided with brokers")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold the bot token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults.
//
//nolint:cyclop // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	addresses := cfg.Addresses[:0]

	for _, address := range cfg.Addresses {
		if address = strings.TrimSpace(address); address != "" {
			addresses = append(addresses, address)
		}
	}

	if len(addresses) == 0 {
		return errAddressesRequired
	}

	cfg.Addresses = addresses

	if cfg.Source.URL == "" {
		cfg.Source.URL = DefaultSourceURL
	}

	if _, err := url.ParseRequestURI(cfg.Source.URL); err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}

	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = DefaultUserAgent
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFilename
	}

	if cfg.RenderedFile == "" {
		cfg.RenderedFile = DefaultRenderedFilename
	}

	for _, address := range []string{cfg.GRPCAddress, cfg.HTTPAddress} {
		if address == "" {
			continue
		}

		if _, _, err := net.SplitHostPort(address); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", address, err)
		}
	}

	if cfg.Telegram.APIURL != "" {
		if _, err := url.ParseRequestURI(cfg.Telegram.APIURL); err != nil {
			return fmt.Errorf("invalid telegram API URL: %w", err)
		}
	}

	if cfg.Kafka.Enabled() && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		return errKafkaTopicRequired
	}

	return nil
}

// Location returns the configured time zone. Validate must have succeeded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}

	return loc
}

// applyEnv lets secrets come from the environment instead of the file.
func applyEnv(cfg *Config) {
	if token := os.Getenv(EnvTelegramToken); token != "" {
		cfg.Telegram.Token = token
	}

	if channel := os.Getenv(EnvTelegramChannel); channel != "" {
		cfg.Telegram.ChannelID = channel
	}
}
