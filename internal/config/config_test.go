package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestGeneratedTemplateRoundTrips(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.Storage.Key != "weekly-plan" {
		t.Fatalf("unexpected storage key %q", cfg.Storage.Key)
	}
	if cfg.Retrospective.Window != WindowFriday {
		t.Fatalf("unexpected window %q", cfg.Retrospective.Window)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Assistant.Model == "" || cfg.Storage.Key == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadAppliesOverridesAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := "retrospective:\n  window: friday-to-sunday\nassistant:\n  model: test-model\n"
	if err := os.WriteFile(filepath.Join(dir, "focusline.yml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FOCUSLINE_ASSISTANT_API_KEY", "sk-test")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Retrospective.Window != WindowToSunday {
		t.Fatalf("override lost: %q", cfg.Retrospective.Window)
	}
	if cfg.Assistant.Model != "test-model" {
		t.Fatalf("override lost: %q", cfg.Assistant.Model)
	}
	if cfg.Assistant.APIKey != "sk-test" {
		t.Fatalf("env override lost: %q", cfg.Assistant.APIKey)
	}
	// unset fields keep defaults
	if cfg.Assistant.BaseURL == "" || cfg.Assistant.TimeoutSeconds == 0 {
		t.Fatalf("defaults lost: %+v", cfg.Assistant)
	}
}

func TestValidateRejectsBadWindow(t *testing.T) {
	cfg := Default()
	cfg.Retrospective.Window = "tuesday"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for bad window")
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	for _, s := range []string{"", "info", "DEBUG", "warn", "warning", "error"} {
		if _, err := ParseLogLevel(s); err != nil {
			t.Fatalf("ParseLogLevel(%q): %v", s, err)
		}
	}
}
