package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitConfig_Defaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GALLERY_ROOT", root)

	cfg, err := InitConfig(writeConfig(t, `
logLevel: DEBUG
listen: ":3000"
storage:
  type: fs
  fs:
    root: ${GALLERY_ROOT}
pages:
  prefix: pages/
gallery:
  mediaPrefix: /files/
probe:
  db:
    type: sqlite3
    config:
      dsn: ./probe.db
localePath: ./locale/
availableLanguages:
  - name: en
    locFile: en.yaml
`))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, root, cfg.Storage.FS.Root)
	assert.Equal(t, "/files/", cfg.Gallery.MediaPrefix)
	assert.Equal(t, "overlay", cfg.Gallery.Viewer)
	assert.Equal(t, "https://unpkg.com/htmx.org@2.0.3", cfg.Gallery.HtmxURL)
	assert.Equal(t, 5*time.Second, cfg.Gallery.External.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Pages.CacheDuration)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 4, cfg.Probe.Concurrency)
	assert.Equal(t, 1<<20, cfg.Probe.MaxBytes)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Nil(t, cfg.Pages.Report)
}

func TestInitConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "storage section missing for its type",
			content: `
listen: ":3000"
storage:
  type: s3
probe:
  db:
    type: sqlite3
    config:
      dsn: ./probe.db
localePath: ./locale/
availableLanguages:
  - name: en
    locFile: en.yaml
`,
		},
		{
			name: "unknown viewer",
			content: `
listen: ":3000"
storage:
  type: fs
  fs:
    root: .
gallery:
  viewer: carousel
probe:
  db:
    type: sqlite3
    config:
      dsn: ./probe.db
localePath: ./locale/
availableLanguages:
  - name: en
    locFile: en.yaml
`,
		},
		{
			name: "no languages",
			content: `
listen: ":3000"
storage:
  type: fs
  fs:
    root: .
probe:
  db:
    type: sqlite3
    config:
      dsn: ./probe.db
localePath: ./locale/
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InitConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
