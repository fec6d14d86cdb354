package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  port: "9090"
sync:
  schedule: "*/15 * * * *"
databases:
  - workspace: personal
    name: tasks
    id: db-1
    calendar_id: cal-1
    title_property: Name
    date_property: Date
    tag_property_path: Status/status/name
    tag_mapping:
      Done: "✅"
feeds:
  - name: school
    url: https://example.com/school.ics
    calendar_id: cal-2
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 50, cfg.Storage.Retention)
	assert.Equal(t, "https://api.notion.com/v1", cfg.Notion.BaseURL)
	assert.Equal(t, "secrets/token.json", cfg.Google.TokenFile)
	assert.Equal(t, 5, cfg.Sync.MaxCreateAgeDays)
	assert.False(t, cfg.Sync.DryRun)
	assert.Empty(t, cfg.Databases)
	assert.Empty(t, cfg.Feeds)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sample), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600))
	// Restored on cleanup after godotenv overrides it.
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SYNC_DRY_RUN", "true")
	t.Setenv("SERVER_PORT", "7070")

	for _, path := range []string{dir, filepath.Join(dir, "config.yaml")} {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "7070", cfg.Server.Port, "environment wins over the file")
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Sync.DryRun)
		assert.Equal(t, "*/15 * * * *", cfg.Sync.Schedule)

		require.Len(t, cfg.Databases, 1)
		db := cfg.Databases[0]
		assert.Equal(t, "tasks", db.Name)
		assert.Equal(t, "Status/status/name", db.TagPropertyPath)
		assert.Equal(t, "✅ Write", db.DisplayTitle("Write", "Done"))

		require.Len(t, cfg.Feeds, 1)
		assert.Equal(t, "https://example.com/school.ics", cfg.Feeds[0].URL)
		assert.NoError(t, cfg.Targets().Validate())
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
