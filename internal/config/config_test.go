package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "text", Rotation: true, MaxSize: 10, MaxBackups: 3, MaxAge: 7},
		Loader:  LoaderConfig{RequestTimeout: 10 * time.Second},
		Form:    FormConfig{IDPrefix: "root"},
		Prompt:  PromptConfig{MaxAttempts: 3, Output: "json"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"FORMSCHEMA_LOG_LEVEL":       "debug",
		"FORMSCHEMA_LOG_FORMAT":      "json",
		"FORMSCHEMA_ALLOW_HTTP":      "true",
		"FORMSCHEMA_REQUEST_TIMEOUT": "2s",
		"FORMSCHEMA_ID_PREFIX":       "signup",
		"FORMSCHEMA_LIVE_VALIDATE":   "true",
		"FORMSCHEMA_MAX_ATTEMPTS":    "5",
		"FORMSCHEMA_OUTPUT":          "pretty",
		"LOG_LEVEL":                  "error",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if !cfg.Loader.AllowHTTP || cfg.Loader.RequestTimeout != 2*time.Second {
		t.Fatalf("unexpected loader config %+v", cfg.Loader)
	}
	if cfg.Form.IDPrefix != "signup" || !cfg.Form.LiveValidate {
		t.Fatalf("unexpected form config %+v", cfg.Form)
	}
	if cfg.Prompt.MaxAttempts != 5 || cfg.Prompt.Output != "pretty" {
		t.Fatalf("unexpected prompt config %+v", cfg.Prompt)
	}

	logCfg := cfg.LoggerConfig()
	if logCfg.Level != "debug" || logCfg.MaxSize != 10 {
		t.Fatalf("unexpected logger config %+v", logCfg)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{name: "level", environ: map[string]string{"FORMSCHEMA_LOG_LEVEL": "loud"}, want: "invalid log level"},
		{name: "format", environ: map[string]string{"FORMSCHEMA_LOG_FORMAT": "xml"}, want: "invalid log format"},
		{name: "timeout", environ: map[string]string{"FORMSCHEMA_REQUEST_TIMEOUT": "0s"}, want: "request timeout"},
		{name: "attempts", environ: map[string]string{"FORMSCHEMA_MAX_ATTEMPTS": "0"}, want: "max attempts"},
		{name: "output", environ: map[string]string{"FORMSCHEMA_OUTPUT": "xml"}, want: "invalid prompt output"},
		{name: "parse", environ: map[string]string{"FORMSCHEMA_MAX_ATTEMPTS": "many"}, want: "parse environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
