// Package config handles handroid configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/handroid/config.yaml, /etc/handroid/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "handroid", "config.yaml"))
	}

	paths = append(paths, "/etc/handroid/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
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

// Config holds all handroid configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	ADB        ADBConfig        `yaml:"adb"`
	Agent      AgentConfig      `yaml:"agent"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Listen     ListenConfig     `yaml:"listen"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	LogLevel   string           `yaml:"log_level"`
}

// LLMConfig defines the OpenAI-compatible model gateway settings.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Model plans actions and drives the tool loop.
	Model string `yaml:"model"`
	// CheckModel answers screen-state queries. Falls back to Model
	// when empty; a small fast model is usually enough here.
	CheckModel  string  `yaml:"check_model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ADBConfig defines how the device bridge is reached.
type ADBConfig struct {
	// Path is the adb binary. Defaults to "adb" on $PATH.
	Path string `yaml:"path"`
	// Serial pins a specific device. Empty means auto-select when
	// exactly one device is connected.
	Serial string `yaml:"serial"`
}

// AgentConfig tunes the tool-calling conversation loop.
type AgentConfig struct {
	// MaxIterations is the round ceiling before history compaction
	// kicks in (default 8).
	MaxIterations int `yaml:"max_iterations"`
	// StateInvalidatingTools are tool names whose execution makes
	// previously observed device state stale.
	StateInvalidatingTools []string `yaml:"state_invalidating_tools"`
	// SystemPrompt overrides the built-in system prompt.
	SystemPrompt string `yaml:"system_prompt"`
	// WarnOnCompactionFailure logs a warning when compaction exhausts
	// its retries and rolls back. Default true.
	WarnOnCompactionFailure *bool `yaml:"warn_on_compaction_failure"`
}

// KnowledgeConfig defines the help-document store.
type KnowledgeConfig struct {
	// DBPath is the SQLite database file. Empty disables knowledge tools.
	DBPath string `yaml:"db_path"`
}

// EmbeddingsConfig defines embedding generation settings.
type EmbeddingsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	// BaseURL defaults to llm.base_url.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ListenConfig defines the web chat server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// MQTTConfig defines the optional instruction bridge.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BrokerURL   string `yaml:"broker_url"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so credentials can stay out of the file.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.LLM.CheckModel == "" {
		cfg.LLM.CheckModel = cfg.LLM.Model
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.Embeddings.APIKey == "" {
		cfg.Embeddings.APIKey = cfg.LLM.APIKey
	}

	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	return nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Temperature: 0.7,
		},
		ADB: ADBConfig{
			Path: "adb",
		},
		Agent: AgentConfig{
			MaxIterations: 8,
		},
		Knowledge: KnowledgeConfig{
			DBPath: "handroid_help.db",
		},
		Listen: ListenConfig{Port: 8080},
		MQTT: MQTTConfig{
			ClientID:    "handroid",
			TopicPrefix: "handroid",
		},
	}
}
