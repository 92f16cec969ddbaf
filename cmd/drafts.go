package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/editor"
	"github.com/zjrosen/draftpad/internal/storage"
	"github.com/zjrosen/draftpad/internal/watcher"
)

const draftSuffix = "-storedText"

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect and clear stored drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored drafts",
	Long: `List the drafts in the configured store.

With --watch the list is reprinted whenever the SQLite database changes,
for example while another draftpad is editing.`,
	Args: cobra.NoArgs,
	RunE: runDraftsList,
}

var draftsShowCmd = &cobra.Command{
	Use:   "show <namespace>",
	Short: "Print a stored draft",
	Long: `Print the draft stored for namespace.

Formats:
  json      the stored delta (default)
  markdown  the draft converted to markdown
  text      the draft's plain text`,
	Args: cobra.ExactArgs(1),
	RunE: runDraftsShow,
}

var draftsClearCmd = &cobra.Command{
	Use:   "clear [namespace...]",
	Short: "Remove stored drafts",
	Long: `Remove the draft and editor state for each namespace, the same keys
the editor removes after a submit. --all empties the store.`,
	RunE: runDraftsClear,
}

var (
	draftsWatch  bool
	draftsFormat string
	draftsAll    bool
)

func init() {
	draftsListCmd.Flags().BoolVarP(&draftsWatch, "watch", "w", false, "reprint when the sqlite store changes")
	draftsShowCmd.Flags().StringVarP(&draftsFormat, "format", "f", "json", "output format: json, markdown or text")
	draftsClearCmd.Flags().BoolVar(&draftsAll, "all", false, "remove every key in the store")

	draftsCmd.AddCommand(draftsListCmd, draftsShowCmd, draftsClearCmd)
	rootCmd.AddCommand(draftsCmd)
}

func runDraftsList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := printDrafts(ctx, cmd.OutOrStdout(), store); err != nil {
		return err
	}
	if !draftsWatch {
		return nil
	}

	sq, ok := store.(*storage.SQLiteStore)
	if !ok {
		return fmt.Errorf("--watch needs the sqlite backend, not %q", cfg.Storage.Backend)
	}
	w, err := watcher.New(watcher.DefaultConfig(sq.Path()))
	if err != nil {
		return fmt.Errorf("watching %s: %w", sq.Path(), err)
	}
	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("watching %s: %w", sq.Path(), err)
	}
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			if err := printDrafts(ctx, cmd.OutOrStdout(), store); err != nil {
				return err
			}
		}
	}
}

// printDrafts writes one row per draft. The sqlite store also knows when
// each draft was last written.
func printDrafts(ctx context.Context, out io.Writer, store storage.Store) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	if sq, ok := store.(*storage.SQLiteStore); ok {
		entries, err := sq.Entries(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "NAMESPACE\tSIZE\tUPDATED")
		for _, e := range entries {
			if !strings.HasSuffix(e.Key, draftSuffix) {
				continue
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n",
				namespaceOf(e.Key), humanize.Bytes(uint64(len(e.Value))), humanize.Time(e.UpdatedAt))
		}
		return nil
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(tw, "NAMESPACE\tSIZE")
	for _, k := range keys {
		if !strings.HasSuffix(k, draftSuffix) {
			continue
		}
		v, _, err := store.Get(ctx, k)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", namespaceOf(k), humanize.Bytes(uint64(len(v))))
	}
	return nil
}

// namespaceOf recovers the namespace from a draft key in the current scope.
func namespaceOf(key string) string {
	key = strings.TrimSuffix(key, draftSuffix)
	return strings.TrimPrefix(key, cfg.Editor.Scope+"-")
}

func runDraftsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	key := storage.DraftKey(cfg.Editor.Scope, args[0])
	value, ok, err := store.Get(cmd.Context(), key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no draft stored for %q", args[0])
	}
	out, err := formatDraft(value, draftsFormat)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func formatDraft(value, format string) (string, error) {
	if format == "json" {
		return value, nil
	}
	doc, err := delta.Parse(value)
	if err != nil {
		return "", fmt.Errorf("stored draft is not a delta: %w", err)
	}
	switch format {
	case "markdown":
		return strings.TrimSuffix(doc.Markdown(), "\n"), nil
	case "text":
		return strings.TrimSuffix(doc.PlainText(), "\n"), nil
	}
	return "", fmt.Errorf("unknown format %q (want json, markdown or text)", format)
}

func runDraftsClear(cmd *cobra.Command, args []string) error {
	if !draftsAll && len(args) == 0 {
		return fmt.Errorf("name at least one namespace, or pass --all")
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	match := func(string) bool { return true }
	if !draftsAll {
		matchers := make([]func(string) bool, len(args))
		for i, ns := range args {
			matchers[i] = editor.ClearMatcher(ns)
		}
		match = func(key string) bool {
			for _, m := range matchers {
				if m(key) {
					return true
				}
			}
			return false
		}
	}

	removed, err := storage.RemoveMatching(cmd.Context(), store, match)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d %s\n", len(removed), plural(len(removed), "key", "keys"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
