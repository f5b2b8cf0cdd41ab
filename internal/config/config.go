// Package config handles Ayla configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/ayla/config.yaml, /etc/ayla/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ayla", "config.yaml"))
	}

	paths = append(paths, "/etc/ayla/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Ayla configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	Redis      RedisConfig      `yaml:"redis"`
	LLM        LLMConfig        `yaml:"llm"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Memory     MemoryConfig     `yaml:"memory"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Pacer      PacerConfig      `yaml:"pacer"`
	Router     RouterConfig     `yaml:"router"`
	Promise    PromiseConfig    `yaml:"promise"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	DataDir    string           `yaml:"data_dir"`
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"` // text or json
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// RedisConfig defines the conversation memory backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Configured reports whether a Redis backend has been set up. Without
// one the agent runs memoryless (every turn degrades to empty history).
func (c RedisConfig) Configured() bool {
	return c.Addr != ""
}

// LLMConfig defines the completion API settings. The endpoint speaks the
// OpenAI chat-completions protocol.
type LLMConfig struct {
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	FallbackModel       string `yaml:"fallback_model"`
	MaxCompletionTokens int    `yaml:"max_completion_tokens"`
	TimeoutSec          int    `yaml:"timeout_sec"`
}

// GatewayConfig defines the WhatsApp gateway connection.
type GatewayConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Instance         string `yaml:"instance"`
	WebsocketEnabled bool   `yaml:"websocket_enabled"`
}

// Configured reports whether the gateway connection is usable.
func (c GatewayConfig) Configured() bool {
	return c.BaseURL != "" && c.Instance != ""
}

// MemoryConfig tunes the per-user conversation memory.
type MemoryConfig struct {
	MaxMessages int    `yaml:"max_messages"` // stored turn cap (default 20)
	TTLSec      int    `yaml:"ttl_sec"`      // expiry from last write (default 604800)
	UserTag     string `yaml:"user_tag"`     // role tag for user turns (default "User")
	AgentTag    string `yaml:"agent_tag"`    // role tag for agent turns (default "Agent")
}

// TTL returns the configured memory expiry as a duration.
func (c MemoryConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// SegmenterConfig tunes outbound message splitting.
type SegmenterConfig struct {
	MaxLength int `yaml:"max_length"` // max chars per segment (default 200)
}

// PacerConfig tunes outbound delivery pacing.
type PacerConfig struct {
	DelayMS int `yaml:"delay_ms"` // inter-segment delay (default 3500)
}

// Delay returns the inter-segment delay as a duration.
func (c PacerConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// RouterConfig overrides the intent router keyword sets. Empty lists
// fall back to the built-in defaults in the router package.
type RouterConfig struct {
	FitnessKeywords     []string `yaml:"fitness_keywords"`
	NutritionKeywords   []string `yaml:"nutrition_keywords"`
	OutOfDomainKeywords []string `yaml:"out_of_domain_keywords"`
	SalesKeywords       []string `yaml:"sales_keywords"`
	SupportKeywords     []string `yaml:"support_keywords"`
}

// PromiseConfig overrides the deferred-action detection lists. Empty
// lists fall back to the built-in defaults in the promise package.
type PromiseConfig struct {
	Phrases     []string     `yaml:"phrases"`
	ActionPairs []ActionPair `yaml:"action_pairs"`
}

// ActionPair is an action word that, co-occurring with any of its domain
// keywords in the user message, marks a response as actionable now.
type ActionPair struct {
	Action   string   `yaml:"action"`
	Keywords []string `yaml:"keywords"`
}

// OnboardingConfig defines the web onboarding flow hand-off.
type OnboardingConfig struct {
	URLBase string `yaml:"url_base"` // per-user link is url_base + "/" + user ID
}

// SMTPConfig defines the outbound mail server for welcome emails.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	StartTLS bool   `yaml:"starttls"` // true: plain+STARTTLS (587), false: implicit TLS (465)
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Configured reports whether welcome emails can be sent.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// MQTTConfig defines the optional operational status publisher.
type MQTTConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Broker             string `yaml:"broker"` // e.g. mqtt://host:1883 or mqtts://host:8883
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	DeviceName         string `yaml:"device_name"`
	DiscoveryPrefix    string `yaml:"discovery_prefix"`
	PublishIntervalSec int    `yaml:"publish_interval_sec"`
}

// Load reads configuration from a YAML file. Environment variables in
// ${VAR} form are expanded before parsing so secrets can stay out of
// the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with every tunable at its default.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		Redis:   RedisConfig{Addr: "localhost:6379"},
		LLM: LLMConfig{
			BaseURL:             "https://api.openai.com/v1",
			Model:               "gpt-4o-mini",
			FallbackModel:       "gpt-4o-mini",
			MaxCompletionTokens: 1000,
			TimeoutSec:          60,
		},
		Memory: MemoryConfig{
			MaxMessages: 20,
			TTLSec:      604800,
			UserTag:     "User",
			AgentTag:    "Agent",
		},
		Segmenter: SegmenterConfig{MaxLength: 200},
		Pacer:     PacerConfig{DelayMS: 3500},
		SMTP:      SMTPConfig{Port: 587, StartTLS: true},
		MQTT: MQTTConfig{
			DeviceName:         "ayla",
			DiscoveryPrefix:    "homeassistant",
			PublishIntervalSec: 60,
		},
	}
}

// Validate checks the configuration for values that would fail later in
// confusing ways. It is called by Load; Default() always validates.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format: unknown format %q (valid: text, json)", c.LogFormat)
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port: %d out of range", c.Listen.Port)
	}
	if c.Memory.MaxMessages <= 0 {
		return fmt.Errorf("memory.max_messages: must be positive, got %d", c.Memory.MaxMessages)
	}
	if c.Segmenter.MaxLength <= 0 {
		return fmt.Errorf("segmenter.max_length: must be positive, got %d", c.Segmenter.MaxLength)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker: required when mqtt is enabled")
	}
	return nil
}
