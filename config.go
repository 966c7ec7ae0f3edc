// ABOUTME: Configuration file handling for persistent settings and rules.
// ABOUTME: Validates against a schema and degrades to safe defaults on damage.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config is the persisted record: settings plus the ordered rule list.
type Config struct {
	Mute               bool   `json:"mute"`
	Token              string `json:"token,omitempty"`
	ServerURL          string `json:"serverUrl,omitempty"`
	TrayOnMinimize     bool   `json:"trayOnMinimize"`
	PushEnabled        bool   `json:"pushEnabled"`
	PushUserKey        string `json:"pushUserKey,omitempty"`
	PushAppToken       string `json:"pushAppToken,omitempty"`
	PushWhenMuted      bool   `json:"pushWhenMuted"`
	PushIncludeMessage bool   `json:"pushIncludeMessage"`

	// Deprecated: older versions kept one global push sound. It folds
	// into Rule.PushSound on load when the per-rule value is empty.
	LegacyPushSound string `json:"pushSound,omitempty"`

	Rules []Rule `json:"rules"`
}

// configSchema rejects records whose recognized fields have the wrong
// shape. Unknown fields pass; wrong types inside rules drop the record.
const configSchema = `{
  "type": "object",
  "properties": {
    "mute": {"type": "boolean"},
    "token": {"type": "string"},
    "serverUrl": {"type": "string"},
    "trayOnMinimize": {"type": "boolean"},
    "pushEnabled": {"type": "boolean"},
    "pushUserKey": {"type": "string"},
    "pushAppToken": {"type": "string"},
    "pushWhenMuted": {"type": "boolean"},
    "pushIncludeMessage": {"type": "boolean"},
    "pushSound": {"type": "string"},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "senderId": {"type": "string"},
          "soundPath": {"type": "string"},
          "volume": {"type": "integer"},
          "pushSound": {"type": "string"}
        }
      }
    }
  }
}`

var compiledConfigSchema = mustCompileConfigSchema()

func mustCompileConfigSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(configSchema))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("talkalert-config.json", doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile("talkalert-config.json")
	if err != nil {
		panic(err)
	}
	return sch
}

// ConfigPath returns the platform-appropriate path for the config file.
func ConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, "talkalert", "config.json")
}

// DefaultConfig returns the record used when nothing usable is on disk.
func DefaultConfig() *Config {
	s := DefaultSettings()
	return &Config{
		TrayOnMinimize:     s.TrayOnMinimize,
		PushWhenMuted:      s.PushWhenMuted,
		PushIncludeMessage: s.PushIncludeMessage,
	}
}

// LoadConfig reads the configuration from the given path. A missing file
// yields defaults. A malformed or schema-invalid file also yields defaults
// with a non-nil error for logging; startup never fails on config damage.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}
	if err := compiledConfigSchema.Validate(inst); err != nil {
		return DefaultConfig(), fmt.Errorf("validate config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode config: %w", err)
	}

	cfg.sanitize()
	return cfg, nil
}

// sanitize trims identity fields, clamps volumes, drops unusable rules,
// and folds the deprecated global push sound into the per-rule field.
func (c *Config) sanitize() {
	c.Token = strings.TrimSpace(c.Token)
	c.ServerURL = strings.TrimSpace(c.ServerURL)
	c.PushUserKey = strings.TrimSpace(c.PushUserKey)
	c.PushAppToken = strings.TrimSpace(c.PushAppToken)
	legacy := strings.TrimSpace(c.LegacyPushSound)
	c.LegacyPushSound = ""

	cleaned := make([]Rule, 0, len(c.Rules))
	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		r.SenderID = strings.TrimSpace(r.SenderID)
		if r.SenderID == "" || seen[r.SenderID] {
			continue
		}
		seen[r.SenderID] = true
		r.Volume = ClampVolume(r.Volume)
		r.PushSound = strings.TrimSpace(r.PushSound)
		if r.PushSound == "" && legacy != "" {
			r.PushSound = legacy
		}
		cleaned = append(cleaned, r)
	}
	c.Rules = cleaned
}

// Settings extracts the settings portion of the record.
func (c *Config) Settings() Settings {
	return Settings{
		Mute:               c.Mute,
		Token:              c.Token,
		ServerURL:          c.ServerURL,
		TrayOnMinimize:     c.TrayOnMinimize,
		PushEnabled:        c.PushEnabled,
		PushUserKey:        c.PushUserKey,
		PushAppToken:       c.PushAppToken,
		PushWhenMuted:      c.PushWhenMuted,
		PushIncludeMessage: c.PushIncludeMessage,
	}
}

// ConfigFromState builds the persisted record from live settings and rules.
func ConfigFromState(s Settings, rules []Rule) *Config {
	return &Config{
		Mute:               s.Mute,
		Token:              s.Token,
		ServerURL:          s.ServerURL,
		TrayOnMinimize:     s.TrayOnMinimize,
		PushEnabled:        s.PushEnabled,
		PushUserKey:        s.PushUserKey,
		PushAppToken:       s.PushAppToken,
		PushWhenMuted:      s.PushWhenMuted,
		PushIncludeMessage: s.PushIncludeMessage,
		Rules:              rules,
	}
}

// Save writes the configuration to the given path, creating directories
// as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// LoadConfigOrDefaults loads the config and logs instead of propagating
// damage; callers always get something usable.
func LoadConfigOrDefaults(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		log.Printf("Config at %s is unusable, starting with defaults: %v", path, err)
	}
	return cfg
}
