// Package config provides configuration types and defaults for draftpad.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/zjrosen/draftpad/internal/log"
)

// Config holds all configuration options for draftpad.
type Config struct {
	Editor  EditorConfig  `mapstructure:"editor"`
	UI      UIConfig      `mapstructure:"ui"`
	Storage StorageConfig `mapstructure:"storage"`
	Mention MentionConfig `mapstructure:"mention"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Embed   EmbedConfig   `mapstructure:"embed"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Log     LogConfig     `mapstructure:"log"`
}

// EditorConfig holds editor behaviour settings.
type EditorConfig struct {
	Scope         string        `mapstructure:"scope"`          // prefix for draft keys, usually the community id
	Namespace     string        `mapstructure:"namespace"`      // default draft namespace, e.g. "new-thread"
	FlushInterval time.Duration `mapstructure:"flush_interval"` // draft autosave interval
}

// UIConfig holds terminal host options.
type UIConfig struct {
	DefaultMode   string `mapstructure:"default_mode"`   // "richText", "markdown" or "" (no preference)
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default), "light" or "notty"
	ShowToolbar   bool   `mapstructure:"show_toolbar"`
	MutedColor    string `mapstructure:"muted_color"` // hex override for borders and hints
	ErrorColor    string `mapstructure:"error_color"`
}

// StorageConfig selects where drafts are kept.
type StorageConfig struct {
	Backend    string        `mapstructure:"backend"` // "sqlite" (default), "memory" or "redis"
	SQLitePath string        `mapstructure:"sqlite_path"`
	RedisURL   string        `mapstructure:"redis_url"`
	RedisTTL   time.Duration `mapstructure:"redis_ttl"` // 0 keeps drafts until cleared
}

// MentionConfig configures member search for @-mentions.
type MentionConfig struct {
	Backend          string        `mapstructure:"backend"` // "none" (default) or "meilisearch"
	MeiliURL         string        `mapstructure:"meili_url"`
	MeiliAPIKey      string        `mapstructure:"meili_api_key"`
	Index            string        `mapstructure:"index"`
	Community        string        `mapstructure:"community"` // search scope
	ResultSize       int           `mapstructure:"result_size"`
	Debounce         time.Duration `mapstructure:"debounce"`
	DropStaleResults bool          `mapstructure:"drop_stale_results"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"` // 0 disables result caching
}

// UploadConfig configures the image upload pipeline.
type UploadConfig struct {
	Backend      string        `mapstructure:"backend"` // "none" (default), "http" or "minio"
	SignatureURL string        `mapstructure:"signature_url"`
	JWT          string        `mapstructure:"jwt"` // session token sent with signature requests
	Timeout      time.Duration `mapstructure:"timeout"`
	Minio        MinioConfig   `mapstructure:"minio"`
}

// MinioConfig holds S3-compatible presigning settings.
type MinioConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"` // set to skip the bucket location lookup
	UseSSL    bool          `mapstructure:"use_ssl"`
	Expiry    time.Duration `mapstructure:"expiry"`
}

// EmbedConfig configures link embeds.
type EmbedConfig struct {
	PostScriptURL   string        `mapstructure:"post_script_url"`
	PostProbeDelay  time.Duration `mapstructure:"post_probe_delay"`
	PostRetryDelay  time.Duration `mapstructure:"post_retry_delay"`
	VideoProbeDelay time.Duration `mapstructure:"video_probe_delay"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend: "none", "file", "stdout", "otlp".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// LogConfig configures the debug log file.
type LogConfig struct {
	Path       string `mapstructure:"path"`
	Level      string `mapstructure:"level"` // debug, info, warn, error
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// DataDir returns ~/.draftpad, or ".draftpad" when the home dir is unavailable.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".draftpad"
	}
	return filepath.Join(home, ".draftpad")
}

// DefaultSQLitePath returns the default draft database location.
func DefaultSQLitePath() string {
	return filepath.Join(DataDir(), "drafts.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	return filepath.Join(DataDir(), "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Editor: EditorConfig{
			Scope:         "draftpad",
			Namespace:     "new-thread",
			FlushInterval: 250 * time.Millisecond,
		},
		UI: UIConfig{
			DefaultMode:   "",
			MarkdownStyle: "dark",
			ShowToolbar:   true,
		},
		Storage: StorageConfig{
			Backend:    "sqlite",
			SQLitePath: DefaultSQLitePath(),
		},
		Mention: MentionConfig{
			Backend:          "none",
			Index:            "profiles",
			ResultSize:       6,
			Debounce:         300 * time.Millisecond,
			DropStaleResults: true,
			CacheTTL:         time.Minute,
		},
		Upload: UploadConfig{
			Backend: "none",
			Timeout: 30 * time.Second,
			Minio: MinioConfig{
				UseSSL: true,
				Region: "us-east-1",
				Expiry: 15 * time.Minute,
			},
		},
		Embed: EmbedConfig{
			PostScriptURL:   "https://platform.twitter.com/widgets.js",
			PostProbeDelay:  250 * time.Millisecond,
			PostRetryDelay:  500 * time.Millisecond,
			VideoProbeDelay: time.Millisecond,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Log: LogConfig{
			Path:       "debug.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Validate checks every section.
func Validate(cfg Config) error {
	for _, check := range []func() error{
		func() error { return ValidateEditor(cfg.Editor) },
		func() error { return ValidateUI(cfg.UI) },
		func() error { return ValidateStorage(cfg.Storage) },
		func() error { return ValidateMention(cfg.Mention) },
		func() error { return ValidateUpload(cfg.Upload) },
		func() error { return ValidateTracing(cfg.Tracing) },
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEditor checks editor configuration for errors.
func ValidateEditor(e EditorConfig) error {
	if e.Namespace == "" {
		return fmt.Errorf("editor.namespace is required")
	}
	if e.FlushInterval <= 0 {
		return fmt.Errorf("editor.flush_interval must be positive, got %v", e.FlushInterval)
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateUI checks UI configuration for errors.
func ValidateUI(ui UIConfig) error {
	switch ui.DefaultMode {
	case "", "richText", "markdown":
	default:
		return fmt.Errorf("ui.default_mode must be \"richText\" or \"markdown\", got %q", ui.DefaultMode)
	}
	switch ui.MarkdownStyle {
	case "", "dark", "light", "notty":
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\", \"light\" or \"notty\", got %q", ui.MarkdownStyle)
	}
	for name, c := range map[string]string{"ui.muted_color": ui.MutedColor, "ui.error_color": ui.ErrorColor} {
		if c != "" && !hexColor.MatchString(c) {
			return fmt.Errorf("%s must be a hex color like #7D7D7D, got %q", name, c)
		}
	}
	return nil
}

// ValidateStorage checks storage configuration for errors.
func ValidateStorage(s StorageConfig) error {
	switch s.Backend {
	case "", "memory":
	case "sqlite":
		if s.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required when backend is \"sqlite\"")
		}
	case "redis":
		if s.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required when backend is \"redis\"")
		}
	default:
		return fmt.Errorf("storage.backend must be \"memory\", \"sqlite\", or \"redis\", got %q", s.Backend)
	}
	if s.RedisTTL < 0 {
		return fmt.Errorf("storage.redis_ttl must not be negative, got %v", s.RedisTTL)
	}
	return nil
}

// ValidateMention checks mention configuration for errors.
func ValidateMention(m MentionConfig) error {
	switch m.Backend {
	case "", "none":
	case "meilisearch":
		if m.MeiliURL == "" {
			return fmt.Errorf("mention.meili_url is required when backend is \"meilisearch\"")
		}
		if m.Index == "" {
			return fmt.Errorf("mention.index is required when backend is \"meilisearch\"")
		}
	default:
		return fmt.Errorf("mention.backend must be \"none\" or \"meilisearch\", got %q", m.Backend)
	}
	if m.ResultSize < 0 {
		return fmt.Errorf("mention.result_size must not be negative, got %d", m.ResultSize)
	}
	return nil
}

// ValidateUpload checks upload configuration for errors.
func ValidateUpload(u UploadConfig) error {
	switch u.Backend {
	case "", "none":
	case "http":
		if u.SignatureURL == "" {
			return fmt.Errorf("upload.signature_url is required when backend is \"http\"")
		}
	case "minio":
		if u.Minio.Endpoint == "" || u.Minio.Bucket == "" {
			return fmt.Errorf("upload.minio.endpoint and upload.minio.bucket are required when backend is \"minio\"")
		}
	default:
		return fmt.Errorf("upload.backend must be \"none\", \"http\", or \"minio\", got %q", u.Backend)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# draftpad configuration

editor:
  scope: draftpad          # prefix for draft keys
  namespace: new-thread    # draft namespace used when none is given
  flush_interval: 250ms    # how often unsaved changes are written

ui:
  # default_mode: markdown # "richText" or "markdown"; saved when you switch modes
  markdown_style: dark     # preview style: "dark" (default), "light" or "notty"
  show_toolbar: true
  # muted_color: "#696969"
  # error_color: "#FF8787"

# Where drafts are kept: sqlite (default), memory, or redis
storage:
  backend: sqlite
  # sqlite_path: ~/.draftpad/drafts.db
  # redis_url: redis://localhost:6379/0
  # redis_ttl: 168h

# Member search for @-mentions
mention:
  backend: none            # "none" or "meilisearch"
  # meili_url: http://localhost:7700
  # meili_api_key: ""
  index: profiles
  # community: my-community
  result_size: 6
  debounce: 300ms
  drop_stale_results: true # ignore results of searches overtaken by newer ones
  cache_ttl: 1m

# Image uploads
upload:
  backend: none            # "none", "http" (signature endpoint) or "minio"
  # signature_url: https://forum.example/api/getUploadSignature
  # jwt: ""
  timeout: 30s
  # minio:
  #   endpoint: localhost:9000
  #   access_key: ""
  #   secret_key: ""
  #   bucket: uploads
  #   region: us-east-1
  #   use_ssl: true
  #   expiry: 15m

embed:
  post_script_url: https://platform.twitter.com/widgets.js
  post_probe_delay: 250ms
  post_retry_delay: 500ms
  video_probe_delay: 1ms

# tracing:
#   enabled: false
#   exporter: file                # none, file, stdout, otlp
#   file_path: ~/.draftpad/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

log:
  path: debug.log
  level: debug
  max_size_mb: 10
  max_backups: 3
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
