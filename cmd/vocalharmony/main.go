// Command vocalharmony is an interactive vocal harmony audition tool. It
// records a short phrase from the microphone and plays it back through any
// combination of pitch-shifted copies on a two-octave semitone grid, all
// starting at the same instant.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bli0428/vocalharmony/internal/app"
	"github.com/bli0428/vocalharmony/internal/config"
	"github.com/bli0428/vocalharmony/internal/harmony"
	"github.com/bli0428/vocalharmony/internal/interval"
	"github.com/bli0428/vocalharmony/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch", false, "reload the config file when it changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vocalharmony: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("vocalharmony starting",
		"config", *configPath,
		"sample_rate", cfg.Audio.SampleRate,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Metrics provider ──────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Config watcher (optional) ─────────────────────────────────────────────
	if *watch {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			d := config.Diff(old, new)
			if d.LogLevelChanged {
				logLevel.Set(slogLevel(d.NewLogLevel))
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			if d.HarmonyChanged {
				slog.Info("harmony tuning changed; applies to chains created from now on",
					"window_ms", d.NewHarmony.WindowMs,
					"delay_ms", d.NewHarmony.DelayMs,
				)
			}
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	fmt.Println("vocalharmony ready. Type 'help' for commands.")
	printGrid(application.Engine())

	if err := commandLoop(ctx, application.Engine()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("command loop error", "err", err)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// version is injected at build time via -ldflags.
var version = "dev"

// loadConfig loads the config file, falling back to defaults when the file
// does not exist so the tool works out of the box.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "vocalharmony: config file %q not found, using defaults\n", path)
		return config.Default(), nil
	}
	return nil, err
}

// ── Command loop ──────────────────────────────────────────────────────────────

// commandLoop reads line commands from stdin until EOF, "quit", or ctx
// cancellation.
func commandLoop(ctx context.Context, eng *harmony.Engine) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := dispatch(ctx, eng, line); quit {
				return nil
			}
		}
	}
}

// dispatch executes one command line. It returns true when the loop should
// exit.
func dispatch(ctx context.Context, eng *harmony.Engine, line string) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}

	switch cmd := fields[0]; cmd {
	case "record", "r":
		if err := eng.StartRecording(ctx); err != nil {
			printErr(err)
			return false
		}
		fmt.Println("recording... type 'stop' to finish the take")

	case "stop", "s":
		rec, err := eng.StopRecording(ctx)
		if err != nil {
			printErr(err)
			return false
		}
		fmt.Printf("captured %d KiB, grid is ready to audition\n", len(rec.Bytes())/1024)

	case "toggle", "t":
		if len(fields) < 2 {
			fmt.Println("usage: toggle <offset>  (e.g. 'toggle +7' or 'toggle -12')")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Printf("not an offset: %q\n", fields[1])
			return false
		}
		active, err := eng.Toggle(harmony.Offset(n))
		if err != nil {
			printErr(err)
			return false
		}
		state := "off"
		if active {
			state = "on"
		}
		fmt.Printf("%s is now %s (%s)\n", harmony.Offset(n), state, interval.Classify(n))

	case "play", "p":
		ref, err := eng.Play(ctx)
		if err != nil {
			printErr(err)
			return false
		}
		if ref.IsZero() {
			fmt.Println("nothing selected")
			return false
		}
		fmt.Printf("playing %d voice(s) at %s\n", len(eng.Offsets()), ref.Format("15:04:05.000"))

	case "grid", "g":
		printGrid(eng)

	case "status":
		fmt.Printf("state=%s capturing=%v recording=%v chains=%d selected=%v\n",
			eng.State(), eng.Capturing(), eng.RecordingReady(), eng.ChainCount(), eng.Offsets())

	case "help", "h", "?":
		printHelp()

	case "quit", "q", "exit":
		return true

	default:
		fmt.Printf("unknown command %q, type 'help'\n", cmd)
	}
	return false
}

func printErr(err error) {
	switch {
	case errors.Is(err, harmony.ErrNoRecording):
		fmt.Println("no recording yet; 'record' a phrase first")
	case errors.Is(err, harmony.ErrCapturing):
		fmt.Println("a recording is in progress; 'stop' it first")
	case errors.Is(err, harmony.ErrNotCapturing):
		fmt.Println("no recording in progress")
	case errors.Is(err, harmony.ErrPlaying):
		fmt.Println("playback is running; wait for it to finish")
	case errors.Is(err, harmony.ErrPlayPending):
		fmt.Println("a play request is already being prepared")
	default:
		fmt.Printf("error: %v\n", err)
	}
}

func printHelp() {
	fmt.Print(`commands:
  record        start capturing a phrase from the microphone
  stop          finish the capture
  toggle <n>    flip offset n (semitones, -12..+12) on or off
  play          start every active offset at one shared instant
  grid          show the offset grid
  status        show engine state
  quit          exit
`)
}

// ── Grid rendering ────────────────────────────────────────────────────────────

// classCode maps a consonance class to an ANSI colour.
func classCode(c interval.Class) string {
	switch c {
	case interval.Unison:
		return "\x1b[90m"
	case interval.Perfect:
		return "\x1b[32m"
	case interval.Imperfect:
		return "\x1b[34m"
	default:
		return "\x1b[31m"
	}
}

// printGrid renders the two-octave offset grid. Active offsets are marked,
// and each cell is coloured by its consonance class.
func printGrid(eng *harmony.Engine) {
	const reset = "\x1b[0m"
	var b strings.Builder
	for o := harmony.MinOffset; o <= harmony.MaxOffset; o++ {
		mark := " "
		if eng.Active(o) {
			mark = "*"
		}
		b.WriteString(classCode(interval.Classify(int(o))))
		fmt.Fprintf(&b, "[%s%3s]", mark, o)
		b.WriteString(reset)
		if o == -1 {
			// Split the rows around unison.
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	fmt.Print(b.String())
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
