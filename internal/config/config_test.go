package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, "draftpad", cfg.Editor.Scope)
	require.Equal(t, "new-thread", cfg.Editor.Namespace)
	require.Equal(t, 250*time.Millisecond, cfg.Editor.FlushInterval)
	require.Empty(t, cfg.UI.DefaultMode, "no stored preference by default")
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Equal(t, 6, cfg.Mention.ResultSize)
	require.True(t, cfg.Mention.DropStaleResults)
	require.Equal(t, "none", cfg.Upload.Backend)
	require.Equal(t, "https://platform.twitter.com/widgets.js", cfg.Embed.PostScriptURL)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, Validate(cfg))
}

func TestValidateEditor(t *testing.T) {
	require.NoError(t, ValidateEditor(EditorConfig{Namespace: "reply", FlushInterval: time.Second}))

	err := ValidateEditor(EditorConfig{FlushInterval: time.Second})
	require.ErrorContains(t, err, "editor.namespace")

	err = ValidateEditor(EditorConfig{Namespace: "reply"})
	require.ErrorContains(t, err, "flush_interval")
}

func TestValidateUI(t *testing.T) {
	for _, mode := range []string{"", "richText", "markdown"} {
		require.NoError(t, ValidateUI(UIConfig{DefaultMode: mode}), mode)
	}
	require.ErrorContains(t, ValidateUI(UIConfig{DefaultMode: "wysiwyg"}), "ui.default_mode")
	require.ErrorContains(t, ValidateUI(UIConfig{MarkdownStyle: "pink"}), "ui.markdown_style")
	require.ErrorContains(t, ValidateUI(UIConfig{MutedColor: "grey"}), "ui.muted_color")
	require.NoError(t, ValidateUI(UIConfig{MarkdownStyle: "notty", ErrorColor: "#FF8787"}))
}

func TestValidateStorage(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StorageConfig
		wantErr string
	}{
		{name: "memory", cfg: StorageConfig{Backend: "memory"}},
		{name: "empty backend", cfg: StorageConfig{}},
		{name: "sqlite", cfg: StorageConfig{Backend: "sqlite", SQLitePath: "/tmp/d.db"}},
		{name: "sqlite without path", cfg: StorageConfig{Backend: "sqlite"}, wantErr: "sqlite_path"},
		{name: "redis", cfg: StorageConfig{Backend: "redis", RedisURL: "redis://localhost:6379"}},
		{name: "redis without url", cfg: StorageConfig{Backend: "redis"}, wantErr: "redis_url"},
		{name: "negative ttl", cfg: StorageConfig{Backend: "memory", RedisTTL: -time.Second}, wantErr: "redis_ttl"},
		{name: "unknown", cfg: StorageConfig{Backend: "etcd"}, wantErr: "storage.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStorage(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateMention(t *testing.T) {
	require.NoError(t, ValidateMention(MentionConfig{Backend: "none"}))
	require.NoError(t, ValidateMention(MentionConfig{Backend: "meilisearch", MeiliURL: "http://localhost:7700", Index: "profiles"}))
	require.ErrorContains(t, ValidateMention(MentionConfig{Backend: "meilisearch", Index: "p"}), "meili_url")
	require.ErrorContains(t, ValidateMention(MentionConfig{Backend: "meilisearch", MeiliURL: "http://x"}), "mention.index")
	require.ErrorContains(t, ValidateMention(MentionConfig{Backend: "solr"}), "mention.backend")
	require.ErrorContains(t, ValidateMention(MentionConfig{ResultSize: -1}), "result_size")
}

func TestValidateUpload(t *testing.T) {
	require.NoError(t, ValidateUpload(UploadConfig{Backend: "none"}))
	require.NoError(t, ValidateUpload(UploadConfig{Backend: "http", SignatureURL: "https://f/api/sig"}))
	require.ErrorContains(t, ValidateUpload(UploadConfig{Backend: "http"}), "signature_url")
	require.NoError(t, ValidateUpload(UploadConfig{Backend: "minio", Minio: MinioConfig{Endpoint: "localhost:9000", Bucket: "up"}}))
	require.ErrorContains(t, ValidateUpload(UploadConfig{Backend: "minio", Minio: MinioConfig{Endpoint: "localhost:9000"}}), "bucket")
	require.ErrorContains(t, ValidateUpload(UploadConfig{Backend: "ftp"}), "upload.backend")
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{SampleRate: 0.5}))
	require.ErrorContains(t, ValidateTracing(TracingConfig{SampleRate: 1.5}), "sample_rate")
	require.ErrorContains(t, ValidateTracing(TracingConfig{Exporter: "jaeger"}), "tracing.exporter")
	require.ErrorContains(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "file", SampleRate: 1}), "file_path")
	require.ErrorContains(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1}), "otlp_endpoint")
	require.NoError(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp", OTLPEndpoint: "localhost:4317", SampleRate: 1}))
}

func TestDefaultConfigTemplate_ParsesAndMatchesDefaults(t *testing.T) {
	tmpl := DefaultConfigTemplate()

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(tmpl), &raw))

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(stringsReader(tmpl)))

	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))
	require.Equal(t, "new-thread", cfg.Editor.Namespace)
	require.Equal(t, 250*time.Millisecond, cfg.Editor.FlushInterval)
	require.Equal(t, 300*time.Millisecond, cfg.Mention.Debounce)
	require.Equal(t, "dark", cfg.UI.MarkdownStyle)
	require.NoError(t, Validate(cfg))
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
