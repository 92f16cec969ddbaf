package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/draftpad/internal/config"
	"github.com/zjrosen/draftpad/internal/editor"
	"github.com/zjrosen/draftpad/internal/embed"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/mention"
	"github.com/zjrosen/draftpad/internal/storage"
	"github.com/zjrosen/draftpad/internal/tracing"
	"github.com/zjrosen/draftpad/internal/ui/editorview"
	"github.com/zjrosen/draftpad/internal/ui/styles"
	"github.com/zjrosen/draftpad/internal/upload"
)

const scriptTimeout = 10 * time.Second

var editCmd = &cobra.Command{
	Use:   "edit [namespace]",
	Short: "Open the editor (same as running draftpad without a command)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEdit,
}

func init() {
	addEditFlags(editCmd)
	rootCmd.AddCommand(editCmd)
}

func addEditFlags(c *cobra.Command) {
	c.Flags().StringP("mode", "m", "", "preferred mode for a fresh draft: richText or markdown")
	c.Flags().String("text", "", "start from this markdown, replacing any stored draft")
	c.Flags().Bool("no-toolbar", false, "hide the format toolbar")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cleanup, err := initLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	styles.ApplyTheme(cfg.UI.MutedColor, cfg.UI.ErrorColor)
	zone.NewGlobal()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.ErrorErr(log.CatTrace, "tracing shutdown failed", err)
		}
	}()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	namespace := cfg.Editor.Namespace
	if len(args) == 1 {
		namespace = args[0]
	}
	opts, err := editorOptions(cmd, store, namespace, provider.Tracer())
	if err != nil {
		return err
	}
	noToolbar, _ := cmd.Flags().GetBool("no-toolbar")

	m, err := editorview.New(ctx, editorview.Options{
		Editor:        opts,
		MarkdownStyle: cfg.UI.MarkdownStyle,
		ShowToolbar:   cfg.UI.ShowToolbar && !noToolbar,
		Debug:         debugEnabled(),
	})
	if err != nil {
		return fmt.Errorf("creating editor: %w", err)
	}

	res, err := editorview.Run(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	if res.Submitted {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Document)
	}
	return nil
}

// editorOptions wires the configured backends into editor options.
func editorOptions(cmd *cobra.Command, store storage.Store, namespace string, tracer trace.Tracer) (editor.Options, error) {
	opts := editor.Options{
		Store:         store,
		Scope:         cfg.Editor.Scope,
		Namespace:     namespace,
		FlushInterval: cfg.Editor.FlushInterval,
		Preferences:   editor.PreferencesFunc(savePreferredMode),
		Searcher:      newSearcher(),
		MentionOptions: []mention.ResolverOption{
			mention.WithDebounce(cfg.Mention.Debounce),
			mention.WithSearchOptions(mention.Options{ResultSize: cfg.Mention.ResultSize, Scope: cfg.Mention.Community}),
			mention.WithDropStaleResults(cfg.Mention.DropStaleResults),
			mention.WithTracer(tracer),
		},
		Scripts: embed.NewScriptCache(embed.HTTPScriptLoader{Client: &http.Client{Timeout: scriptTimeout}}, tracer),
		EmbedOptions: []embed.Option{
			embed.WithScriptURL(cfg.Embed.PostScriptURL),
			embed.WithProbeDelays(cfg.Embed.PostProbeDelay, cfg.Embed.PostRetryDelay, cfg.Embed.VideoProbeDelay),
		},
		Tracer: tracer,
	}

	preferred := cfg.UI.DefaultMode
	if flag, _ := cmd.Flags().GetString("mode"); flag != "" {
		preferred = flag
	}
	if preferred != "" {
		mode, err := editor.ParseMode(preferred)
		if err != nil {
			return opts, fmt.Errorf("--mode: %w", err)
		}
		opts.PreferredMode = mode
	}
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		opts.InitialText = text
	}

	signer, err := upload.NewSigner(cfg.Upload)
	if err != nil {
		return opts, fmt.Errorf("configuring uploads: %w", err)
	}
	if signer != nil {
		opts.Uploader = upload.NewUploader(signer,
			upload.WithHTTPClient(&http.Client{Timeout: cfg.Upload.Timeout}),
			upload.WithTracer(tracer))
	}
	return opts, nil
}

// newSearcher returns the member search backend, or nil when mentions only
// show the hint row.
func newSearcher() mention.Searcher {
	if cfg.Mention.Backend != "meilisearch" {
		return nil
	}
	meili := mention.NewMeiliSearcher(cfg.Mention.MeiliURL, cfg.Mention.MeiliAPIKey, cfg.Mention.Index)
	return mention.NewCachedSearcher(meili, cfg.Mention.CacheTTL)
}

// savePreferredMode records the mode in the config file in use, if any.
func savePreferredMode(mode editor.Mode) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		return nil
	}
	return config.SavePreferredMode(path, string(mode))
}
