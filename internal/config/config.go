package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
)

// Config holds the settings shared by holonet commands
type Config struct {
	// Transport selects how relays reach their peer
	Transport Mode

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is "text" or "json"
	LogFormat string

	// LogFile, when set, sends logs to a rotating file instead of stdout
	LogFile string

	// WebSocketURL is the peer endpoint in websocket mode
	WebSocketURL string

	// RelayNamespace is the Azure Relay namespace
	RelayNamespace string

	// HybridConnection is the hybrid connection to dial in azure mode
	HybridConnection string

	// RelayKeyName and RelayKey select SAS authentication. When both are
	// empty Entra ID (DefaultAzureCredential) is used.
	RelayKeyName string
	RelayKey     string

	// SubscriptionID and ResourceGroup enable provisioning of the hybrid
	// connection before the first dial
	SubscriptionID string
	ResourceGroup  string

	// PollMin and PollMax bound the threaded relay's idle backoff
	PollMin time.Duration
	PollMax time.Duration
}

// fileConfig is the TOML layout of a config file
type fileConfig struct {
	Transport string `toml:"transport"`
	Log       struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
	WebSocket struct {
		URL string `toml:"url"`
	} `toml:"websocket"`
	Azure struct {
		Namespace        string `toml:"namespace"`
		HybridConnection string `toml:"hybrid_connection"`
		KeyName          string `toml:"key_name"`
		Key              string `toml:"key"`
		SubscriptionID   string `toml:"subscription_id"`
		ResourceGroup    string `toml:"resource_group"`
	} `toml:"azure"`
	Poll struct {
		Min string `toml:"min"`
		Max string `toml:"max"`
	} `toml:"poll"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Transport: ModeMemory,
		LogLevel:  "info",
		LogFormat: "text",
		PollMin:   netconn.DefaultMinPoll,
		PollMax:   netconn.DefaultMaxPoll,
	}
}

// Load creates a Config by reading from environment variables
// and applying defaults where values are not set
func Load() (*Config, error) {
	cfg := Defaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a TOML file, then lets environment variables override it
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := Defaults()
	if err := cfg.applyFile(&fc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc *fileConfig) error {
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.LogFile, fc.Log.File)
	setString(&c.WebSocketURL, fc.WebSocket.URL)
	setString(&c.RelayNamespace, fc.Azure.Namespace)
	setString(&c.HybridConnection, fc.Azure.HybridConnection)
	setString(&c.RelayKeyName, fc.Azure.KeyName)
	setString(&c.RelayKey, fc.Azure.Key)
	setString(&c.SubscriptionID, fc.Azure.SubscriptionID)
	setString(&c.ResourceGroup, fc.Azure.ResourceGroup)
	if fc.Transport != "" {
		c.Transport = Mode(fc.Transport)
	}
	if err := setDuration(&c.PollMin, "poll.min", fc.Poll.Min); err != nil {
		return err
	}
	return setDuration(&c.PollMax, "poll.max", fc.Poll.Max)
}

func (c *Config) applyEnv() error {
	c.Transport = Mode(getEnvOrDefault("HOLONET_TRANSPORT", c.Transport.String()))
	c.LogLevel = getEnvOrDefault("HOLONET_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("HOLONET_LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnvOrDefault("HOLONET_LOG_FILE", c.LogFile)
	c.WebSocketURL = getEnvOrDefault("HOLONET_WS_URL", c.WebSocketURL)
	c.RelayNamespace = getEnvOrDefault("HOLONET_RELAY_NAMESPACE", c.RelayNamespace)
	c.HybridConnection = getEnvOrDefault("HOLONET_RELAY_HC", c.HybridConnection)
	c.RelayKeyName = getEnvOrDefault("HOLONET_RELAY_KEY_NAME", c.RelayKeyName)
	c.RelayKey = getEnvOrDefault("HOLONET_RELAY_KEY", c.RelayKey)
	c.SubscriptionID = getEnvOrDefault("HOLONET_AZURE_SUBSCRIPTION_ID", c.SubscriptionID)
	c.ResourceGroup = getEnvOrDefault("HOLONET_AZURE_RESOURCE_GROUP", c.ResourceGroup)

	if err := setDuration(&c.PollMin, "HOLONET_POLL_MIN", os.Getenv("HOLONET_POLL_MIN")); err != nil {
		return err
	}
	return setDuration(&c.PollMax, "HOLONET_POLL_MAX", os.Getenv("HOLONET_POLL_MAX"))
}

// Validate checks that the values required by the selected transport are
// present and that the poll bounds are sane
func (c *Config) Validate() error {
	if !c.Transport.IsValid() {
		return fmt.Errorf("invalid transport %q (must be memory, websocket or azure)", c.Transport)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}

	var missing []string
	switch c.Transport {
	case ModeWebSocket:
		if c.WebSocketURL == "" {
			missing = append(missing, "HOLONET_WS_URL")
		}
	case ModeAzure:
		if c.RelayNamespace == "" {
			missing = append(missing, "HOLONET_RELAY_NAMESPACE")
		}
		if c.HybridConnection == "" {
			missing = append(missing, "HOLONET_RELAY_HC")
		}
		if (c.RelayKeyName == "") != (c.RelayKey == "") {
			missing = append(missing, "HOLONET_RELAY_KEY_NAME and HOLONET_RELAY_KEY together")
		}
		if (c.SubscriptionID == "") != (c.ResourceGroup == "") {
			missing = append(missing, "HOLONET_AZURE_SUBSCRIPTION_ID and HOLONET_AZURE_RESOURCE_GROUP together")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.PollMin <= 0 {
		return errors.New("poll minimum must be positive")
	}
	if c.PollMax < c.PollMin {
		return fmt.Errorf("poll maximum %s is below minimum %s", c.PollMax, c.PollMin)
	}
	return nil
}

// UsesSAS reports whether azure mode authenticates with a shared access key
func (c *Config) UsesSAS() bool {
	return c.RelayKeyName != "" && c.RelayKey != ""
}

// Provisioning reports whether the hybrid connection should be created
// before dialing
func (c *Config) Provisioning() bool {
	return c.SubscriptionID != "" && c.ResourceGroup != ""
}

// RelayOptions builds netconn options from the poll settings
func (c *Config) RelayOptions(logger *logging.Logger, metrics *netconn.Metrics) *netconn.Options {
	return &netconn.Options{
		Logger:  logger,
		Metrics: metrics,
		MinPoll: c.PollMin,
		MaxPoll: c.PollMax,
	}
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}
