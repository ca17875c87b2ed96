package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxcal/internal/audio"
	"voxcal/internal/calendar"
	"voxcal/internal/config"
	"voxcal/internal/ipc"
	"voxcal/internal/nlu"
	"voxcal/internal/notify"
	"voxcal/internal/observability"
	"voxcal/internal/proxy"
	"voxcal/internal/session"
	"voxcal/internal/tts"
	"voxcal/internal/voice"
	"voxcal/internal/vox"
	"voxcal/internal/weather"
	"voxcal/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type mode int

const (
	modeDaemon  mode = iota // microphone, driven by voxcal-ctl and the bus
	modeConsole             // typed commands on stdin
	modePTT                 // microphone, Enter starts listening
)

func main() {
	cfgPath := cli.StringP("config", "c", "voxcal.yaml", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address, overrides config")
	logLevel := cli.StringP("log", "l", "", "Log level, overrides config")
	console := cli.Bool("console", false, "Type commands instead of speaking them")
	ptt := cli.Bool("ptt", false, "Press Enter to activate the microphone")
	cli.Parse()

	setLogger("info")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Error("Failed to apply environment", "err", err)
		os.Exit(1)
	}
	if cli.CommandLine.Changed("proxy") {
		cfg.Proxy = *proxyAddr
	}
	if cli.CommandLine.Changed("log") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Bad config", "err", err)
		os.Exit(1)
	}
	setLogger(cfg.LogLevel)

	m := modeDaemon
	switch {
	case *console:
		m = modeConsole
	case *ptt:
		m = modePTT
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, m); err != nil {
		log.Error("Shutting down", "err", err)
		os.Exit(1)
	}
	log.Info("Bye")
}

func setLogger(level string) {
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[level],
		TimeFormat: time.TimeOnly,
	})))
}

func run(ctx context.Context, cfg *config.Config, m mode) error {
	log.Info("Booting up", "calendar", cfg.Calendar.URL, "collection", cfg.Calendar.ID)

	metrics := observability.NewMetrics("voxcal")

	calHTTP, err := proxy.NewHTTPClient(cfg.Proxy, cfg.Calendar.Timeout)
	if err != nil {
		return err
	}
	backend, err := calendar.NewHTTPBackend(cfg.Calendar.URL, cfg.Calendar.ID, calendar.WithHTTPClient(calHTTP))
	if err != nil {
		return err
	}
	store, err := calendar.NewClient(backend,
		calendar.WithTiming(timing(cfg.Calendar)),
		calendar.WithObserver(metrics),
	)
	if err != nil {
		return err
	}

	weatherHTTP, err := proxy.NewHTTPClient(cfg.Proxy, cfg.Weather.Timeout)
	if err != nil {
		return err
	}
	forecaster, err := weather.NewClient(cfg.Weather.URL, weather.WithHTTPClient(weatherHTTP))
	if err != nil {
		return err
	}

	var (
		v        nlu.Voice
		listener vox.Listener
		files    vox.FileTranscriber
		mic      *voice.Mic
	)
	if m == modeConsole {
		c := voice.NewConsole(os.Stdin, os.Stdout)
		v, listener = c, c
	} else {
		var closeMic func()
		mic, closeMic, err = newMic(cfg)
		if err != nil {
			return err
		}
		defer closeMic()
		v, listener, files = mic, mic, mic
	}

	sess := session.New()
	log.Debug("Session started", "session", sess.ID)

	dispatcher, err := nlu.NewDispatcher(store, forecaster, v, sess, nlu.WithIntentObserver(metrics))
	if err != nil {
		return err
	}
	assistant, err := vox.NewAssistant(dispatcher,
		vox.WithListener(listener),
		vox.WithFileTranscriber(files),
		vox.WithTurnObserver(metrics),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsListen != "" {
		// The session belongs to the assistant goroutine; only its id and
		// the assistant's atomic counter are read here.
		id := sess.ID.String()
		health := func() map[string]any {
			return map[string]any{"session": id, "turns": assistant.Turns()}
		}
		go func() {
			if err := observability.Serve(ctx, cfg.MetricsListen, observability.Router(metrics, health)); err != nil {
				log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	// The console owns stdin, so it takes no other ingress.
	if m == modeConsole {
		go typedLoop(ctx, assistant, listener)
		log.Info("Boot up - successful", "mode", "console")
		err = assistant.Run(ctx)
		cancel()
		return err
	}

	if cfg.BusURL != "" {
		bus, err := vox.NewBus(ctx, cfg.BusURL, "voxcal")
		if err != nil {
			log.Warn("Bus unavailable", "url", cfg.BusURL, "err", err)
		} else {
			go func() {
				if err := bus.Serve(ctx, assistant); err != nil {
					log.Warn("Bus closed", "err", err)
				}
			}()
		}
	}

	if m == modePTT {
		go pushToTalk(ctx, assistant, os.Stdin)
	}

	srv, err := ipc.Listen(cfg.Socket)
	if err != nil {
		return err
	}
	go func() {
		if err := srv.Serve(ctx, control(assistant)); err != nil {
			log.Error("IPC server failed", "err", err)
		}
	}()

	log.Info("Boot up - successful", "socket", cfg.Socket, "metrics", cfg.MetricsListen)
	err = assistant.Run(ctx)
	cancel()
	return err
}

func timing(c config.CalendarConfig) calendar.Timing {
	c = c.Effective()
	t := calendar.DefaultTiming()
	t.ListAttempts = c.ListAttempts
	t.RetryDelay = c.RetryDelay
	t.CreateSettle = c.CreateSettle
	t.DeleteSettle = c.DeleteSettle
	t.ModifySettle = c.ModifySettle
	t.PassSettle = c.PassSettle
	t.MaxPasses = c.MaxPasses
	t.RestoreOnFail = c.RestoreOnFailedModify
	return t
}

func newMic(cfg *config.Config) (*voice.Mic, func(), error) {
	tr, closeSTT, err := newTranscriber(cfg)
	if err != nil {
		return nil, nil, err
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		closeSTT()
		return nil, nil, fmt.Errorf("init audio: %w", err)
	}
	log.Debug("Loaded recorder")

	var opts []voice.MicOption
	if cfg.Audio.DuckFactor > 0 {
		opts = append(opts, voice.WithDucker(audio.NewDucker(audio.Pactl{}, []string{"voxcal"}, cfg.Audio.DuckFactor, 200*time.Millisecond)))
	}
	mic, err := voice.NewMic(rec, tr, tts.NewSpeaker(cfg.TTS.Voice), notify.NewBeeper(cfg.Audio.Cue), cfg.Audio, opts...)
	if err != nil {
		rec.Close()
		closeSTT()
		return nil, nil, err
	}
	return mic, func() {
		rec.Close()
		closeSTT()
	}, nil
}

func newTranscriber(cfg *config.Config) (stt.Transcriber, func(), error) {
	if cfg.Speech.Backend == "openai" {
		httpClient, err := proxy.NewHTTPClient(cfg.Proxy, 120*time.Second)
		if err != nil {
			return nil, nil, err
		}
		client := openai.NewClient(
			option.WithAPIKey(cfg.Speech.OpenAIKey),
			option.WithHTTPClient(httpClient),
		)
		log.Debug("Using OpenAI transcription")
		return stt.NewOpenAI(client, cfg.Speech.Language), func() {}, nil
	}

	w, err := stt.NewWhisper(cfg.Speech.WhisperModel, stt.WhisperOptions{
		Language:      cfg.Speech.Language,
		Threads:       cfg.Speech.Threads,
		InitialPrompt: stt.Prompt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init whisper: %w", err)
	}
	log.Debug("Loaded whisper", "model", cfg.Speech.WhisperModel)
	return w, func() { w.Close() }, nil
}

// control maps voxcal-ctl requests onto the assistant.
func control(a *vox.Assistant) ipc.Handler {
	return func(ctx context.Context, msg ipc.ControlMessage) ipc.Reply {
		var (
			out nlu.Outcome
			err error
		)
		switch msg.Cmd {
		case ipc.CmdTrigger:
			out, err = a.Trigger(ctx)
		case ipc.CmdSay:
			out, err = a.Submit(ctx, msg.Text)
		case ipc.CmdPlay:
			out, err = a.Play(ctx, msg.Path)
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Error: "unknown command " + msg.Cmd}
		}
		if err != nil {
			log.Error("Command failed", "cmd", msg.Cmd, "err", err)
			return ipc.Reply{Error: err.Error()}
		}
		return ipc.Reply{OK: true, Response: out.Response, Stopped: !out.Continue}
	}
}

func typedLoop(ctx context.Context, a *vox.Assistant, in vox.Listener) {
	for {
		text, err := in.Listen(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error("Failed to read input", "err", err)
			}
			a.Submit(ctx, "stop")
			return
		}
		if _, err := a.Submit(ctx, text); err != nil {
			return
		}
	}
}

func pushToTalk(ctx context.Context, a *vox.Assistant, in io.Reader) {
	lines := bufio.NewScanner(in)
	for {
		fmt.Println("Press Enter to activate the microphone")
		if !lines.Scan() {
			return
		}
		if _, err := a.Trigger(ctx); err != nil {
			if errors.Is(err, vox.ErrStopped) || ctx.Err() != nil {
				return
			}
			log.Error("Trigger failed", "err", err)
		}
	}
}
