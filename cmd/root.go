package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/draftpad/internal/config"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/storage"
)

func init() {
	// Query the terminal background before any program starts so the OSC 11
	// reply cannot race the input loop.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "draftpad [namespace]",
	Short: "A terminal editor for forum posts",
	Long: `Compose forum threads and replies in rich text or markdown.

Drafts are saved as you type and restored the next time the same namespace is
opened. Submitting with ctrl+s prints the document to stdout: delta JSON in
rich text mode, markdown in markdown mode.

Examples:
  draftpad                     # edit the default namespace
  draftpad reply-42            # edit the draft for reply 42
  draftpad -m markdown notes   # prefer markdown for a fresh draft
  draftpad --storage memory    # nothing is persisted`,
	Version:      version,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runEdit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/draftpad/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (also enabled by DRAFTPAD_DEBUG)")
	rootCmd.PersistentFlags().String("storage", "", "draft storage backend: sqlite, memory or redis")
	rootCmd.PersistentFlags().String("scope", "", "scope prefixed to draft keys")

	addEditFlags(rootCmd)

	_ = viper.BindPFlag("storage.backend", rootCmd.PersistentFlags().Lookup("storage"))
	_ = viper.BindPFlag("editor.scope", rootCmd.PersistentFlags().Lookup("scope"))
}

func initConfig() {
	setDefaults(config.Defaults())
	bindEnv()

	userConfig := filepath.Join(userConfigDir(), "config.yaml")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .draftpad/config.yaml (current directory)
		// 2. ~/.config/draftpad/config.yaml (user config)
		if _, err := os.Stat(".draftpad/config.yaml"); err == nil {
			viper.SetConfigFile(".draftpad/config.yaml")
		} else {
			viper.AddConfigPath(userConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// first run: write the commented defaults so there is something to edit
			if writeErr := config.WriteDefaultConfig(userConfig); writeErr == nil {
				viper.SetConfigFile(userConfig)
				_ = viper.ReadInConfig()
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// bindEnv lets DRAFTPAD_STORAGE_BACKEND and friends override any key.
func bindEnv() {
	viper.SetEnvPrefix("DRAFTPAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func userConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".draftpad"
	}
	return filepath.Join(home, ".config", "draftpad")
}

func setDefaults(d config.Config) {
	viper.SetDefault("editor.scope", d.Editor.Scope)
	viper.SetDefault("editor.namespace", d.Editor.Namespace)
	viper.SetDefault("editor.flush_interval", d.Editor.FlushInterval)

	viper.SetDefault("ui.default_mode", d.UI.DefaultMode)
	viper.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	viper.SetDefault("ui.show_toolbar", d.UI.ShowToolbar)

	viper.SetDefault("storage.backend", d.Storage.Backend)
	viper.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	viper.SetDefault("storage.redis_ttl", d.Storage.RedisTTL)

	viper.SetDefault("mention.backend", d.Mention.Backend)
	viper.SetDefault("mention.index", d.Mention.Index)
	viper.SetDefault("mention.result_size", d.Mention.ResultSize)
	viper.SetDefault("mention.debounce", d.Mention.Debounce)
	viper.SetDefault("mention.drop_stale_results", d.Mention.DropStaleResults)
	viper.SetDefault("mention.cache_ttl", d.Mention.CacheTTL)

	viper.SetDefault("upload.backend", d.Upload.Backend)
	viper.SetDefault("upload.timeout", d.Upload.Timeout)
	viper.SetDefault("upload.minio.use_ssl", d.Upload.Minio.UseSSL)
	viper.SetDefault("upload.minio.region", d.Upload.Minio.Region)
	viper.SetDefault("upload.minio.expiry", d.Upload.Minio.Expiry)

	viper.SetDefault("embed.post_script_url", d.Embed.PostScriptURL)
	viper.SetDefault("embed.post_probe_delay", d.Embed.PostProbeDelay)
	viper.SetDefault("embed.post_retry_delay", d.Embed.PostRetryDelay)
	viper.SetDefault("embed.video_probe_delay", d.Embed.VideoProbeDelay)

	viper.SetDefault("tracing.enabled", d.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", d.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)

	viper.SetDefault("log.path", d.Log.Path)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", d.Log.MaxBackups)
}

func debugEnabled() bool {
	return debugFlag || os.Getenv("DRAFTPAD_DEBUG") != ""
}

// initLogging opens the debug log when --debug or DRAFTPAD_DEBUG is set.
// The returned cleanup is never nil.
func initLogging() (func(), error) {
	if !debugEnabled() {
		return func() {}, nil
	}
	path := cfg.Log.Path
	if env := os.Getenv("DRAFTPAD_LOG"); env != "" {
		path = env
	}
	cleanup, err := log.Init(log.Options{
		Path:       path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MinLevel:   log.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		return func() {}, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "draftpad starting", "version", version, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// openStore opens the configured draft store.
func openStore() (storage.Store, error) {
	store, err := storage.Open(storage.Options{
		Backend:    cfg.Storage.Backend,
		SQLitePath: cfg.Storage.SQLitePath,
		RedisURL:   cfg.Storage.RedisURL,
		RedisTTL:   cfg.Storage.RedisTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s draft store: %w", cfg.Storage.Backend, err)
	}
	return store, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
