package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	BaseDir          string `yaml:"base_dir"`
	InboxDir         string `yaml:"inbox_dir"`
	MaxUploadBytesMb int64  `yaml:"max_upload_mb"`

	Workers         int           `yaml:"workers"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	AudioRetention  time.Duration `yaml:"audio_retention"`

	PollInterval time.Duration `yaml:"poll_interval"`

	Reveal Reveal `yaml:"reveal"`

	Redis      Redis      `yaml:"redis"`
	MinIO      MinIO      `yaml:"minio"`
	NATS       NATS       `yaml:"nats"`
	AssemblyAI AssemblyAI `yaml:"assemblyai"`
	Gemini     Gemini     `yaml:"gemini"`
}

type Reveal struct {
	CharInterval time.Duration `yaml:"char_interval"`
	ItemDelay    time.Duration `yaml:"item_delay"`
	GroupPause   time.Duration `yaml:"group_pause"`
}

// Redis is optional: an empty addr selects the in-memory recording store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MinIO is optional: an empty endpoint selects the local audio store.
type MinIO struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`

	// Startup retry knobs; zero values fall back to the client defaults.
	MaxRetries           int           `yaml:"max_retries"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`
}

type NATS struct {
	URL           string        `yaml:"url"`
	QueueName     string        `yaml:"queue_name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	Subject       string        `yaml:"subject"`
}

type AssemblyAI struct {
	APIKey       string        `yaml:"api_key"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Gemini is optional: without keys the heuristic summarizer is used.
type Gemini struct {
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"api_keys"`
}

func MustLoad(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("config: cannot read file %q: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("config: cannot unmarshal yaml: %v", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	return &cfg
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("ASSEMBLYAI_API_KEY"); v != "" {
		c.AssemblyAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEYS"); v != "" {
		c.Gemini.APIKeys = nil
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				c.Gemini.APIKeys = append(c.Gemini.APIKeys, key)
			}
		}
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir is required")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required")
	}
	if c.AssemblyAI.APIKey == "" {
		return fmt.Errorf("assemblyai.api_key is required")
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxUploadBytesMb <= 0 {
		c.MaxUploadBytesMb = 100
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 15 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	if c.AudioRetention <= 0 {
		c.AudioRetention = 7 * 24 * time.Hour
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Reveal.CharInterval <= 0 {
		c.Reveal.CharInterval = 30 * time.Millisecond
	}
	if c.Reveal.ItemDelay <= 0 {
		c.Reveal.ItemDelay = 500 * time.Millisecond
	}
	if c.Reveal.GroupPause <= 0 {
		c.Reveal.GroupPause = time.Second
	}

	return nil
}
