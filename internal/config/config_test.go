package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cleo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
[storage]
engine = "sqlite"

[hierarchy]
max_siblings = 5
max_depth = 3

[session]
enforcement = "strict"
require_session = true
require_session_note = true
require_notes_on_complete = true

[cancellation]
require_reason = true

[archive]
retention_days = 30

[logging]
level = "debug"

[format]
default = "json"

[lock]
max_retries = 5
initial_delay = "200ms"
backoff_factor = 2.5
staleness_timeout = "15s"
`

func TestLoadValidConfig(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EngineSQLite, cfg.Storage.Engine)
	assert.Equal(t, 5, cfg.Hierarchy.MaxSiblings)
	assert.Equal(t, 3, cfg.Hierarchy.MaxDepth)
	assert.Equal(t, EnforcementStrict, cfg.Session.Enforcement)
	assert.True(t, cfg.Session.RequireSession)
	assert.True(t, cfg.Cancellation.RequireReason)
	assert.Equal(t, 30, cfg.Archive.RetentionDays)
	assert.Equal(t, LogDebug, cfg.Logging.Level)
	assert.Equal(t, FormatJSON, cfg.Format.Default)
	assert.Equal(t, 5, cfg.Lock.MaxRetries)
	assert.Equal(t, "200ms", cfg.Lock.InitialDelay.String())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeTestConfig(t, "[bogus]\nfield = 1\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidEnum(t *testing.T) {
	path := writeTestConfig(t, "[storage]\nengine = \"xml\"\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestSetAppliesAndValidatesSingleKey(t *testing.T) {
	cfg := Defaults()
	updated, err := Set(cfg, "hierarchy.maxSiblings", "4")
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Hierarchy.MaxSiblings)
	// original untouched
	assert.Equal(t, 0, cfg.Hierarchy.MaxSiblings)
}

func TestSetRejectsUnknownKey(t *testing.T) {
	_, err := Set(Defaults(), "not.a.key", "1")
	require.Error(t, err)
}

func TestSetRejectsInvalidValue(t *testing.T) {
	_, err := Set(Defaults(), "storage.engine", "nope")
	require.Error(t, err)
}

func TestDurationRoundTrip(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2m")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m0s", string(text))
}
