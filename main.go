package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/lockkeys/cmd"
	"github.com/smazurov/lockkeys/internal/api"
	"github.com/smazurov/lockkeys/internal/config"
	"github.com/smazurov/lockkeys/internal/events"
	"github.com/smazurov/lockkeys/internal/keyboard"
	"github.com/smazurov/lockkeys/internal/led"
	"github.com/smazurov/lockkeys/internal/logging"
	"github.com/smazurov/lockkeys/internal/metrics"
	"github.com/smazurov/lockkeys/internal/process"
	"github.com/smazurov/lockkeys/internal/systemd"
	"k8s.io/utils/clock"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"/etc/lockkeys/config.toml"`

	// Server settings
	Port         string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Keyboard settings
	KeyboardSource       string `help:"Status source (auto, x11, sysfs)" default:"auto" toml:"keyboard.source" env:"KEYBOARD_SOURCE"`
	KeyboardKeys         string `help:"Comma-separated keys to control" default:"Num Lock,Scroll Lock" toml:"keyboard.keys" env:"KEYBOARD_KEYS"`
	KeyboardReloadPeriod string `help:"How often to reload the keyboard status" default:"10s" toml:"keyboard.reload_period" env:"KEYBOARD_RELOAD_PERIOD"`
	KeyboardSysfsRoot    string `help:"sysfs LED class directory" default:"/sys/class/leds" toml:"keyboard.sysfs_root" env:"KEYBOARD_SYSFS_ROOT"`
	KeyboardCommandGrace string `help:"Time an interrupted command gets before it is killed" default:"2s" toml:"keyboard.command_grace" env:"KEYBOARD_COMMAND_GRACE"`

	// Features settings
	FeaturesLEDMirror bool `help:"Mirror key states on board LEDs listed under [leds]" default:"false" toml:"features.led_mirror" env:"FEATURES_LED_MIRROR"`
	FeaturesWatch     bool `help:"Reload logging levels when the config file changes" default:"true" toml:"features.watch_config" env:"FEATURES_WATCH_CONFIG"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

func main() {
	var cli humacli.CLI
	var (
		opts *Options
		file config.File
	)

	cli = humacli.New(func(hooks humacli.Hooks, o *Options) {
		opts = o
		if err := config.LoadConfig(opts, cli.Root()); err != nil {
			slog.Warn("Failed to load config", "error", err)
		}

		var err error
		file, err = config.Load(opts.Config)
		if err != nil {
			slog.Error("Invalid config file", "path", opts.Config, "error", err)
			os.Exit(1)
		}

		loggingConfig := file.Logging
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		d := &daemon{opts: opts, file: file, logger: logging.GetLogger("main")}
		if config.Overridden(opts, cli.Root(), "LoggingLevel") {
			d.pinnedLevel = opts.LoggingLevel
		}
		hooks.OnStart(d.start)
		hooks.OnStop(d.stop)
	})

	open := func() (*cmd.Keyboard, error) {
		ex := process.NewExec(process.WithLogger(logging.GetLogger("exec")))
		return cmd.NewKeyboard(keyboardOptions(opts, file, ex))
	}

	root := cli.Root()
	root.Use = "lockkeys"
	root.Short = "Keyboard indicator keys as switches"
	root.AddCommand(
		cmd.CreateStatusCmd(open),
		cmd.CreateSetCmd(open),
		cmd.CreateResetKeymapCmd(open),
	)

	cli.Run()
}

func keyboardOptions(opts *Options, file config.File, ex process.Executor) cmd.KeyboardOptions {
	var keys []string
	for _, k := range strings.Split(opts.KeyboardKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return cmd.KeyboardOptions{
		Source:      opts.KeyboardSource,
		SysfsRoot:   opts.KeyboardSysfsRoot,
		Keys:        keys,
		Definitions: file.Keys,
		Exec:        ex,
		Logger:      logging.GetLogger("keyboard"),
	}
}

// daemon is the default command: the keyboard service behind the HTTP API.
type daemon struct {
	opts   *Options
	file   config.File
	logger *slog.Logger
	// pinnedLevel is the global log level given on the command line or in the
	// environment; config reloads keep it.
	pinnedLevel string

	cancel  context.CancelFunc
	stopped chan struct{}
}

func (d *daemon) start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.stopped = make(chan struct{})
	defer close(d.stopped)

	if err := d.run(ctx); err != nil {
		d.logger.Error("lockkeys stopped", "error", err)
		os.Exit(1)
	}
}

func (d *daemon) stop() {
	d.logger.Info("Shutting down")
	if d.cancel == nil {
		return
	}
	d.cancel()
	select {
	case <-d.stopped:
	case <-time.After(10 * time.Second):
		d.logger.Warn("Shutdown timed out")
	}
}

func (d *daemon) run(ctx context.Context) error {
	period, err := time.ParseDuration(d.opts.KeyboardReloadPeriod)
	if err != nil || period <= 0 {
		return fmt.Errorf("invalid reload period %q", d.opts.KeyboardReloadPeriod)
	}
	grace, err := time.ParseDuration(d.opts.KeyboardCommandGrace)
	if err != nil {
		return fmt.Errorf("invalid command grace %q: %w", d.opts.KeyboardCommandGrace, err)
	}

	bus := events.New()
	logging.SetSink(events.LogSink(bus))
	defer logging.SetSink(nil)

	m := metrics.New()
	ex := process.NewExec(
		process.WithLogger(logging.GetLogger("exec")),
		process.WithGracefulTimeout(grace),
		process.WithObserver(m.ObserveCommand),
	)

	kb, err := cmd.NewKeyboard(keyboardOptions(d.opts, d.file, ex))
	if err != nil {
		return err
	}

	svc, err := keyboard.NewService(ctx, keyboard.ServiceOptions{
		Keys:        kb.Keys,
		Source:      kb.Source,
		Period:      period,
		Clock:       clock.RealClock{},
		ResetKeymap: kb.ResetKeymap,
		Publisher:   bus,
		Logger:      logging.GetLogger("keyboard"),
		Metrics:     m,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	if d.opts.FeaturesLEDMirror && len(d.file.LEDs) > 0 {
		ledLogger := logging.GetLogger("led")
		if leds, detectErr := led.Detect(d.opts.KeyboardSysfsRoot, ledLogger); detectErr != nil {
			d.logger.Warn("LED mirror disabled", "error", detectErr)
		} else {
			mirror := led.NewMirror(leds, bus, d.file.LEDs, ledLogger)
			mirror.Start()
			defer mirror.Stop()
		}
	}

	if d.opts.FeaturesWatch {
		if _, watchErr := config.WatchLogging(ctx, d.opts.Config, d.pinnedLevel, logging.GetLogger("config")); watchErr != nil {
			d.logger.Warn("Config watcher disabled", "path", d.opts.Config, "error", watchErr)
		}
	}

	server := api.NewServer(&api.Options{
		AuthUsername:   d.opts.AuthUsername,
		AuthPassword:   d.opts.AuthPassword,
		Keys:           svc,
		EventBus:       bus,
		MetricsHandler: m.Handler(),
	})

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
	go notifier.Watchdog(ctx)
	notifier.Status(fmt.Sprintf("%s source, %d keys", kb.Kind, len(kb.Keys)))
	notifier.Ready()
	defer notifier.Stopping()

	d.logger.Info("lockkeys started", "addr", d.opts.Port, "source", kb.Kind, "keys", svc.Keys())
	if err := server.Serve(ctx, d.opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
