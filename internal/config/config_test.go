package config_test

import (
	"courseconnect_backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_DefaultsAndFile(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
jwt:
  secret: short
  expire_hours: 2
storage:
  local_path: `+uploads+`
scoring:
  question_upvote: 15
  retry_initial_interval: 5ms
`)

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 15, cfg.Scoring.QuestionUpvote)
	assert.Equal(t, 1, cfg.Scoring.AnswerUpvote)
	assert.Equal(t, 5, cfg.Scoring.AcceptBonus)
	assert.Equal(t, 5*time.Millisecond, cfg.Scoring.RetryInitialInterval)
	assert.True(t, cfg.QA.ForbidSelfAnswer)
	assert.Equal(t, "logs/courseconnect.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.True(t, cfg.Log.Console)
	assert.Empty(t, cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.ConfigFile)

	_, err = os.Stat(uploads)
	assert.NoError(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: sqlite
jwt:
  secret: short
storage:
  local_path: `+t.TempDir()+`
`)

	_, err := config.LoadConfig(dir)
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("COURSECONNECT_SCORING_ACCEPT_BONUS", "8")
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.JWT.Secret)
	assert.Equal(t, 8, cfg.Scoring.AcceptBonus)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Scoring:  config.DefaultScoring(),
	}
	require.NoError(t, cfg.Validate())

	cfg.Scoring.ReplyUpvote = 0
	assert.Error(t, cfg.Validate())

	cfg.Scoring = config.DefaultScoring()
	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestRateWindow(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, time.Minute, cfg.RateWindow())
	cfg.RateLimit.WindowMinutes = 5
	assert.Equal(t, 5*time.Minute, cfg.RateWindow())
}
