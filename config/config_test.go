package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithMemoryBackend(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 5, cfg.Search.ChunkLimit)
	assert.Equal(t, 30*time.Minute, cfg.Search.SessionTTL)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Features.IsEnabled(FeatureApplications, 42))
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"TELEGRAM_BOT_TOKEN=from-file\n"+
			"STORAGE_BACKEND=memory\n"+
			"SEARCH_CHUNK_LIMIT=3\n"+
			"SEARCH_SESSION_TTL=90s\n"), 0o600))

	// The process environment wins over the file.
	t.Setenv("SEARCH_CHUNK_LIMIT", "7")
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_BOT_TOKEN")
		os.Unsetenv("STORAGE_BACKEND")
		os.Unsetenv("SEARCH_SESSION_TTL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, 7, cfg.Search.ChunkLimit)
	assert.Equal(t, 90*time.Second, cfg.Search.SessionTTL)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("STORAGE_BACKEND", "memory")

	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("SEARCH_CHUNK_LIMIT", "0")
	t.Setenv("TELEGRAM_USE_WEBHOOK", "true")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "")

	_, err := Load("")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "TELEGRAM_BOT_TOKEN is required")
	assert.Contains(t, msg, "DATABASE_URL")
	assert.Contains(t, msg, "SEARCH_CHUNK_LIMIT")
	assert.Contains(t, msg, "TELEGRAM_WEBHOOK_URL")
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := &Config{
		Storage:   "sqlite",
		Telegram:  TelegramConfig{Token: "t", UserRateLimit: 1},
		Search:    SearchConfig{ChunkLimit: 1, SessionTTL: time.Minute},
		HTTP:      HTTPConfig{Port: 80},
		Scheduler: SchedulerConfig{},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `got "sqlite"`)
}

func TestLoad_DatabaseURLFromParts(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "bot")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://bot:pw@db:5432/vacancies?sslmode=disable", cfg.Database.URL)
}

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE FLAGS
// ══════════════════════════════════════════════════════════════════════════════

func TestFeatureFlags_EnvOverrides(t *testing.T) {
	t.Setenv("FEATURE_APPLICATIONS", "false")
	t.Setenv("FEATURE_NOTIFY_NEW_APPLICANT", "0%")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureApplications, 1))
	assert.False(t, ff.IsEnabled(FeatureNotifyApplicant, 1))
	assert.True(t, ff.IsEnabled(FeatureCompanyRegistration, 1))
	assert.False(t, ff.IsEnabled("unknown", 1))
}

func TestFeatureFlags_OverridesAndAdmins(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.Disable(FeatureApplications))

	ff.SetAdmins([]int64{9})
	ff.SetUserOverride(5, FeatureApplications, true)

	gate := ff.Gate(FeatureApplications)
	assert.True(t, gate(9))
	assert.True(t, gate(5))
	assert.False(t, gate(6))

	ff.ClearUserOverrides(5)
	assert.False(t, gate(5))
}

func TestFeatureFlags_RolloutIsStable(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureApplications, 50))

	on := 0
	for id := int64(1); id <= 1000; id++ {
		first := ff.IsEnabled(FeatureApplications, id)
		assert.Equal(t, first, ff.IsEnabled(FeatureApplications, id))
		if first {
			on++
		}
	}
	assert.InDelta(t, 500, on, 100)

	var ffErr *FeatureFlagError
	require.ErrorAs(t, ff.SetRolloutPercent(FeatureApplications, 101), &ffErr)
	require.ErrorAs(t, ff.SetRolloutPercent("nope", 10), &ffErr)
}

func TestLoadStorage_SkipsTelegramSettings(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("TELEGRAM_USE_WEBHOOK", "true")

	cfg, err := LoadStorage("")
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)

	t.Setenv("STORAGE_BACKEND", "sqlite")
	_, err = LoadStorage("")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}
