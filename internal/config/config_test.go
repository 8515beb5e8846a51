package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "data/medianote.db", cfg.Store.Path)
	assert.Equal(t, "data/note_output", cfg.Data.OutputDir)
	assert.Equal(t, "fast", cfg.Note.Quality)
	assert.Equal(t, "yt-dlp", cfg.Tools.YtdlpBin)
	assert.Equal(t, "ffmpeg", cfg.Tools.FfmpegBin)
	assert.NotZero(t, cfg.RateLimit.NotePerHour)
	assert.NotZero(t, cfg.RateLimit.ExportPerHour)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("STORE_PATH", "/tmp/other.db")
	t.Setenv("NOTE_QUALITY", "best")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, "best", cfg.Note.Quality)
}

func TestReadSecret_FromFile(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-secret\n"), 0o600))

	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("JWT_SECRET_FILE", secretFile)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
}

func TestReadSecret_DirectEnvWins(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-secret"), 0o600))

	t.Setenv("JWT_SECRET", "direct-secret")
	t.Setenv("JWT_SECRET_FILE", secretFile)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "direct-secret", cfg.JWT.Secret)
}
