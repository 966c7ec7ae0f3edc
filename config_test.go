// ABOUTME: Tests for config load, save, validation, and sanitization.
// ABOUTME: Damage must degrade to defaults without failing startup.

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Mute = true
	cfg.Token = "tok"
	cfg.ServerURL = "ws://localhost:9770/ws"
	cfg.PushEnabled = true
	cfg.PushUserKey = "ukey"
	cfg.PushAppToken = "atoken"
	cfg.Rules = []Rule{
		{Name: "Alice", SenderID: "u1", SoundPath: "/snd/a.wav", Volume: 70, PushSound: "magic"},
		{SenderID: "u2", SoundPath: "/snd/b.mp3", Volume: 30},
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !loaded.Mute || loaded.Token != "tok" || loaded.ServerURL != "ws://localhost:9770/ws" {
		t.Errorf("settings not preserved: %+v", loaded)
	}
	if len(loaded.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(loaded.Rules))
	}
	if loaded.Rules[0].Name != "Alice" || loaded.Rules[0].PushSound != "magic" {
		t.Errorf("rule fields not preserved: %+v", loaded.Rules[0])
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if cfg.Mute || len(cfg.Rules) != 0 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if !cfg.PushWhenMuted || !cfg.PushIncludeMessage || !cfg.TrayOnMinimize {
		t.Errorf("default flags wrong: %+v", cfg)
	}
}

func TestLoadConfigMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Error("expected an error for malformed JSON")
	}
	if cfg == nil || cfg.Mute {
		t.Errorf("expected usable defaults, got %+v", cfg)
	}
}

func TestLoadConfigSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// rules must be an array, mute must be a boolean
	if err := os.WriteFile(path, []byte(`{"mute": "yes", "rules": {}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Error("expected a validation error")
	}
	if cfg.Mute || len(cfg.Rules) != 0 {
		t.Errorf("expected defaults after validation failure, got %+v", cfg)
	}
}

func TestLoadConfigUnknownFieldsTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"mute": true, "futureFeature": {"x": 1}, "rules": []}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unknown fields should pass, got %v", err)
	}
	if !cfg.Mute {
		t.Error("recognized fields should still load")
	}
}

func TestLoadConfigLegacyPushSound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"pushSound": "cosmic",
		"rules": [
			{"senderId": "u1", "soundPath": "a.wav", "volume": 50},
			{"senderId": "u2", "soundPath": "b.wav", "volume": 50, "pushSound": "bugle"}
		]
	}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Rules[0].PushSound != "cosmic" {
		t.Errorf("legacy sound should fold into empty per-rule field, got %q", cfg.Rules[0].PushSound)
	}
	if cfg.Rules[1].PushSound != "bugle" {
		t.Errorf("per-rule sound should win over legacy, got %q", cfg.Rules[1].PushSound)
	}
	if cfg.LegacyPushSound != "" {
		t.Error("legacy field should be cleared after folding")
	}
}

func TestLoadConfigSanitizesRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"token": "  tok  ",
		"rules": [
			{"senderId": " u1 ", "soundPath": "a.wav", "volume": 400},
			{"senderId": "", "soundPath": "b.wav", "volume": 50},
			{"senderId": "u1", "soundPath": "c.wav", "volume": 50}
		]
	}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Token != "tok" {
		t.Errorf("token not trimmed: %q", cfg.Token)
	}
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected 1 rule after sanitize, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].SenderID != "u1" || cfg.Rules[0].Volume != 100 {
		t.Errorf("rule not sanitized: %+v", cfg.Rules[0])
	}
}

func TestSaveCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "config.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file missing: %v", err)
	}
}

func TestConfigSettingsRoundTrip(t *testing.T) {
	s := Settings{
		Mute:               true,
		Token:              "tok",
		ServerURL:          "ws://h/ws",
		PushEnabled:        true,
		PushUserKey:        "u",
		PushAppToken:       "a",
		PushWhenMuted:      true,
		PushIncludeMessage: true,
		TrayOnMinimize:     true,
	}
	rules := []Rule{{SenderID: "u1", SoundPath: "a.wav", Volume: 50}}

	cfg := ConfigFromState(s, rules)
	if got := cfg.Settings(); got != s {
		t.Errorf("settings round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
	if len(cfg.Rules) != 1 {
		t.Errorf("rules not carried: %+v", cfg.Rules)
	}
}
