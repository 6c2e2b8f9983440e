package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `addr: ":8080"
base_dir: "/var/lib/talknotes"
nats:
  subject: "recordings.process"
assemblyai:
  api_key: "file-key"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMustLoadAppliesDefaults(t *testing.T) {
	cfg := MustLoad(writeConfig(t, minimalYAML))

	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown_timeout default = %v", cfg.ShutdownTimeout)
	}
	if cfg.MaxUploadBytesMb != 100 {
		t.Errorf("max_upload_mb default = %d", cfg.MaxUploadBytesMb)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers default = %d", cfg.Workers)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("poll_interval default = %v", cfg.PollInterval)
	}
	if cfg.Reveal.CharInterval != 30*time.Millisecond ||
		cfg.Reveal.ItemDelay != 500*time.Millisecond ||
		cfg.Reveal.GroupPause != time.Second {
		t.Errorf("reveal defaults = %+v", cfg.Reveal)
	}
	if cfg.AudioRetention != 7*24*time.Hour {
		t.Errorf("audio_retention default = %v", cfg.AudioRetention)
	}
}

func TestMustLoadKeepsExplicitValues(t *testing.T) {
	cfg := MustLoad(writeConfig(t, minimalYAML+`
workers: 2
run_timeout: 1m
reveal:
  char_interval: 5ms
minio:
  max_retries: 7
  retry_initial_interval: 250ms
  retry_max_interval: 8s
`))

	if cfg.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Workers)
	}
	if cfg.RunTimeout != time.Minute {
		t.Errorf("run_timeout = %v, want 1m", cfg.RunTimeout)
	}
	if cfg.Reveal.CharInterval != 5*time.Millisecond {
		t.Errorf("char_interval = %v, want 5ms", cfg.Reveal.CharInterval)
	}
	if cfg.MinIO.MaxRetries != 7 ||
		cfg.MinIO.RetryInitialInterval != 250*time.Millisecond ||
		cfg.MinIO.RetryMaxInterval != 8*time.Second {
		t.Errorf("minio retry knobs = %+v", cfg.MinIO)
	}
}

func TestApplyEnvOverridesSecrets(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "env-key")
	t.Setenv("GEMINI_API_KEYS", "k1, k2 ,,k3")

	cfg := MustLoad(writeConfig(t, minimalYAML))

	if cfg.AssemblyAI.APIKey != "env-key" {
		t.Errorf("assemblyai key = %q, want the env value", cfg.AssemblyAI.APIKey)
	}
	if len(cfg.Gemini.APIKeys) != 3 ||
		cfg.Gemini.APIKeys[0] != "k1" || cfg.Gemini.APIKeys[1] != "k2" || cfg.Gemini.APIKeys[2] != "k3" {
		t.Errorf("gemini keys = %v, want [k1 k2 k3]", cfg.Gemini.APIKeys)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	base := func() Config {
		return Config{
			Addr:       ":8080",
			BaseDir:    "/tmp/x",
			NATS:       NATS{Subject: "s"},
			AssemblyAI: AssemblyAI{APIKey: "k"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"missing base_dir", func(c *Config) { c.BaseDir = "" }, "base_dir"},
		{"missing subject", func(c *Config) { c.NATS.Subject = "" }, "nats.subject"},
		{"missing api key", func(c *Config) { c.AssemblyAI.APIKey = "" }, "assemblyai.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
