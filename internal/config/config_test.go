package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "voxcal.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
calendar:
  id: team_test
  pass_settle: 3s
audio:
  command_silence: 1.5s
speech:
  backend: " OpenAI "
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "team_test", cfg.Calendar.ID)
	require.Equal(t, 3*time.Second, cfg.Calendar.PassSettle)
	require.Equal(t, DefaultCalendarURL, cfg.Calendar.URL)
	require.Equal(t, 10, cfg.Calendar.MaxPasses)
	require.Equal(t, 1500*time.Millisecond, cfg.Audio.CommandSilence)
	require.Equal(t, 2*time.Second, cfg.Audio.AnswerSilence)
	require.Equal(t, "openai", cfg.Speech.Backend)
}

func TestNegativeCalendarDelaysSwitchOff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
calendar:
  retry_delay: -1s
  create_settle: -1ns
  pass_settle: -1s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, -time.Second, cfg.Calendar.RetryDelay)
	require.Equal(t, time.Second, cfg.Calendar.DeleteSettle)

	eff := cfg.Calendar.Effective()
	require.Zero(t, eff.RetryDelay)
	require.Zero(t, eff.CreateSettle)
	require.Zero(t, eff.PassSettle)
	require.Equal(t, time.Second, eff.DeleteSettle)
	require.Equal(t, 1500*time.Millisecond, eff.ModifySettle)
	// The receiver is a copy.
	require.Equal(t, -time.Second, cfg.Calendar.PassSettle)

	// Saving and loading again keeps the switch.
	require.NoError(t, Save(path, cfg))
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, -time.Second, again.Calendar.RetryDelay)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("calendar: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)

	_, err = Load("")
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("VOXCAL_CALENDAR_URL", "http://localhost:9000/calendar.php")
	t.Setenv("VOXCAL_CALENDAR_ID", "team_env")
	t.Setenv("VOXCAL_COMMAND_SILENCE", "3s")
	t.Setenv("VOXCAL_RESTORE_ON_FAILED_MODIFY", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	require.Equal(t, "http://localhost:9000/calendar.php", cfg.Calendar.URL)
	require.Equal(t, "team_env", cfg.Calendar.ID)
	require.Equal(t, 3*time.Second, cfg.Audio.CommandSilence)
	require.True(t, cfg.Calendar.RestoreOnFailedModify)
	require.Equal(t, "sk-test", cfg.Speech.OpenAIKey)
	require.Equal(t, DefaultWeatherURL, cfg.Weather.URL)
}

func TestApplyEnvParseError(t *testing.T) {
	t.Setenv("VOXCAL_MAX_PASSES", "many")

	err := DefaultConfig().ApplyEnv()
	require.ErrorContains(t, err, "VOXCAL_MAX_PASSES")
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	cfg.Calendar.URL = "calendar.php"
	cfg.Speech.Backend = "openai"
	cfg.Audio.Threshold = 2
	cfg.Audio.DuckFactor = 1.5

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	require.ErrorContains(t, err, "log_level")
	require.ErrorContains(t, err, "calendar.url")
	require.ErrorContains(t, err, "OPENAI_API_KEY")
	require.ErrorContains(t, err, "threshold")
	require.ErrorContains(t, err, "duck_factor")
}
