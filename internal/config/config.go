package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCalendarURL = "https://api.responsible-nlp.net/calendar.php"
	DefaultWeatherURL  = "https://api.responsible-nlp.net/weather.php"
	DefaultCalendarID  = "team_ASUS_PRIVATOOOO444SSSO"
	DefaultSocket      = "/tmp/voxcal.sock"
)

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrInvalid   = errors.New("invalid config")
)

type CalendarConfig struct {
	// URL is the calendar endpoint. Every call carries ID as the collection key.
	URL     string        `yaml:"url"`
	ID      string        `yaml:"id"`
	Timeout time.Duration `yaml:"timeout"`

	// Delays below are filled from the defaults when zero. A negative value
	// disables the delay, e.g. against a strongly consistent backend.
	ListAttempts int           `yaml:"list_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	CreateSettle time.Duration `yaml:"create_settle"`
	DeleteSettle time.Duration `yaml:"delete_settle"`
	ModifySettle time.Duration `yaml:"modify_settle"`
	PassSettle   time.Duration `yaml:"pass_settle"`
	MaxPasses    int           `yaml:"max_passes"`

	// RestoreOnFailedModify re-creates the old appointment when the create
	// half of a modify fails.
	RestoreOnFailedModify bool `yaml:"restore_on_failed_modify"`
}

// Effective returns the config with switched-off (negative) delays as zero.
func (c CalendarConfig) Effective() CalendarConfig {
	for _, d := range []*time.Duration{&c.RetryDelay, &c.CreateSettle, &c.DeleteSettle, &c.ModifySettle, &c.PassSettle} {
		*d = max(*d, 0)
	}
	return c
}

type WeatherConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SpeechConfig struct {
	// Backend is "whisper" (local model) or "openai".
	Backend      string `yaml:"backend"`
	WhisperModel string `yaml:"whisper_model"`
	Language     string `yaml:"language"`
	Threads      int    `yaml:"threads"`

	OpenAIKey string `yaml:"-"`
}

type AudioConfig struct {
	CommandSilence  time.Duration `yaml:"command_silence"`
	AnswerSilence   time.Duration `yaml:"answer_silence"`
	NoSpeechTimeout time.Duration `yaml:"no_speech_timeout"`
	MaxDuration     time.Duration `yaml:"max_duration"`
	// Threshold is the peak amplitude (0..1) that counts as speech.
	Threshold float64 `yaml:"threshold"`
	// SpeakDelay lets the microphone release the device before speech starts.
	SpeakDelay time.Duration `yaml:"speak_delay"`
	// Cue is an mp3 played before every capture. Empty disables it.
	Cue string `yaml:"cue"`
	// DuckFactor scales other applications' volume while listening.
	// 0 leaves them alone.
	DuckFactor float64 `yaml:"duck_factor"`
}

type TTSConfig struct {
	Voice string `yaml:"voice"`
}

type Config struct {
	LogLevel string `yaml:"log_level"`
	// Proxy is a SOCKS5 address for outbound HTTP. Empty means direct.
	Proxy string `yaml:"proxy"`
	// MetricsListen serves /healthz and /metrics. Empty disables it.
	MetricsListen string `yaml:"metrics_listen"`
	Socket        string `yaml:"socket"`
	// BusURL is an optional websocket hub that can send commands.
	BusURL string `yaml:"bus_url"`

	Calendar CalendarConfig `yaml:"calendar"`
	Weather  WeatherConfig  `yaml:"weather"`
	Speech   SpeechConfig   `yaml:"speech"`
	Audio    AudioConfig    `yaml:"audio"`
	TTS      TTSConfig      `yaml:"tts"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		MetricsListen: "127.0.0.1:9102",
		Socket:        DefaultSocket,
		Calendar: CalendarConfig{
			URL:          DefaultCalendarURL,
			ID:           DefaultCalendarID,
			Timeout:      5 * time.Second,
			ListAttempts: 2,
			RetryDelay:   500 * time.Millisecond,
			CreateSettle: time.Second,
			DeleteSettle: time.Second,
			ModifySettle: 1500 * time.Millisecond,
			PassSettle:   2 * time.Second,
			MaxPasses:    10,
		},
		Weather: WeatherConfig{
			URL:     DefaultWeatherURL,
			Timeout: 5 * time.Second,
		},
		Speech: SpeechConfig{
			Backend:      "whisper",
			WhisperModel: "models/ggml-base.bin",
			Language:     "en",
		},
		Audio: AudioConfig{
			CommandSilence:  2500 * time.Millisecond,
			AnswerSilence:   2 * time.Second,
			NoSpeechTimeout: 10 * time.Second,
			MaxDuration:     30 * time.Second,
			Threshold:       0.025,
			SpeakDelay:      500 * time.Millisecond,
			Cue:             "beep.mp3",
			DuckFactor:      0.3,
		},
		TTS: TTSConfig{
			Voice: "en",
		},
	}
}

// Normalize fills zero values from DefaultConfig, so older or partial files
// keep working. Calendar delays set to a negative value stay negative and
// mean no delay at all; see CalendarConfig.Effective.
func (c *Config) Normalize() {
	d := DefaultConfig()
	setString(&c.LogLevel, d.LogLevel)
	setString(&c.Socket, d.Socket)

	setString(&c.Calendar.URL, d.Calendar.URL)
	setString(&c.Calendar.ID, d.Calendar.ID)
	setDuration(&c.Calendar.Timeout, d.Calendar.Timeout)
	setInt(&c.Calendar.ListAttempts, d.Calendar.ListAttempts)
	setDelay(&c.Calendar.RetryDelay, d.Calendar.RetryDelay)
	setDelay(&c.Calendar.CreateSettle, d.Calendar.CreateSettle)
	setDelay(&c.Calendar.DeleteSettle, d.Calendar.DeleteSettle)
	setDelay(&c.Calendar.ModifySettle, d.Calendar.ModifySettle)
	setDelay(&c.Calendar.PassSettle, d.Calendar.PassSettle)
	setInt(&c.Calendar.MaxPasses, d.Calendar.MaxPasses)

	setString(&c.Weather.URL, d.Weather.URL)
	setDuration(&c.Weather.Timeout, d.Weather.Timeout)

	c.Speech.Backend = strings.ToLower(strings.TrimSpace(c.Speech.Backend))
	setString(&c.Speech.Backend, d.Speech.Backend)
	setString(&c.Speech.WhisperModel, d.Speech.WhisperModel)
	setString(&c.Speech.Language, d.Speech.Language)

	setDuration(&c.Audio.CommandSilence, d.Audio.CommandSilence)
	setDuration(&c.Audio.AnswerSilence, d.Audio.AnswerSilence)
	setDuration(&c.Audio.NoSpeechTimeout, d.Audio.NoSpeechTimeout)
	setDuration(&c.Audio.MaxDuration, d.Audio.MaxDuration)
	if c.Audio.Threshold <= 0 {
		c.Audio.Threshold = d.Audio.Threshold
	}

	setString(&c.TTS.Voice, d.TTS.Voice)
}

// Validate reports every problem at once, each wrapped with ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		bad("log_level %q", c.LogLevel)
	}
	for name, raw := range map[string]string{"calendar.url": c.Calendar.URL, "weather.url": c.Weather.URL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			bad("%s %q is not an http(s) URL", name, raw)
		}
	}
	if strings.TrimSpace(c.Calendar.ID) == "" {
		bad("calendar.id is empty")
	}
	switch c.Speech.Backend {
	case "whisper":
		if c.Speech.WhisperModel == "" {
			bad("speech.whisper_model is empty")
		}
	case "openai":
		if c.Speech.OpenAIKey == "" {
			bad("speech backend openai needs OPENAI_API_KEY")
		}
	default:
		bad("speech.backend %q", c.Speech.Backend)
	}
	if c.Audio.DuckFactor < 0 || c.Audio.DuckFactor > 1 {
		bad("audio.duck_factor %v is outside 0..1", c.Audio.DuckFactor)
	}
	if c.Audio.Threshold > 1 {
		bad("audio.threshold %v is above 1", c.Audio.Threshold)
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides file values with VOXCAL_* variables and picks up
// OPENAI_API_KEY.
func (c *Config) ApplyEnv() error {
	c.Calendar.URL = envOrDefault("VOXCAL_CALENDAR_URL", c.Calendar.URL)
	c.Calendar.ID = envOrDefault("VOXCAL_CALENDAR_ID", c.Calendar.ID)
	c.Weather.URL = envOrDefault("VOXCAL_WEATHER_URL", c.Weather.URL)
	c.BusURL = envOrDefault("VOXCAL_BUS_URL", c.BusURL)
	c.MetricsListen = envOrDefault("VOXCAL_METRICS_LISTEN", c.MetricsListen)
	c.Proxy = envOrDefault("VOXCAL_PROXY", c.Proxy)
	c.Speech.Backend = envOrDefault("VOXCAL_STT_BACKEND", c.Speech.Backend)
	c.Speech.WhisperModel = envOrDefault("VOXCAL_WHISPER_MODEL", c.Speech.WhisperModel)
	c.Speech.OpenAIKey = envOrDefault("OPENAI_API_KEY", c.Speech.OpenAIKey)

	var err error
	if c.Audio.CommandSilence, err = durationFromEnv("VOXCAL_COMMAND_SILENCE", c.Audio.CommandSilence); err != nil {
		return err
	}
	if c.Calendar.MaxPasses, err = intFromEnv("VOXCAL_MAX_PASSES", c.Calendar.MaxPasses); err != nil {
		return err
	}
	if c.Calendar.RestoreOnFailedModify, err = boolFromEnv("VOXCAL_RESTORE_ON_FAILED_MODIFY", c.Calendar.RestoreOnFailedModify); err != nil {
		return err
	}
	return nil
}

// Load reads the YAML file at path. On first run the defaults are written
// there with 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically through a temp file in the same directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".voxcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func setString(v *string, fallback string) {
	if strings.TrimSpace(*v) == "" {
		*v = fallback
	}
}

func setDuration(v *time.Duration, fallback time.Duration) {
	if *v <= 0 {
		*v = fallback
	}
}

// setDelay keeps negative values, which switch a delay off.
func setDelay(v *time.Duration, fallback time.Duration) {
	if *v == 0 {
		*v = fallback
	}
}

func setInt(v *int, fallback int) {
	if *v <= 0 {
		*v = fallback
	}
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s parse error: %w", key, err)
	}
	return b, nil
}
