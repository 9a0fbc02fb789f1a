package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/teetime/internal/booking"
	"github.com/v0xg/teetime/internal/browser"
	"github.com/v0xg/teetime/internal/config"
	"github.com/v0xg/teetime/internal/interact"
	"github.com/v0xg/teetime/internal/logging"
	"github.com/v0xg/teetime/internal/roster"
	"github.com/v0xg/teetime/internal/schedule"
	"github.com/v0xg/teetime/internal/surface"
	"github.com/v0xg/teetime/internal/trail"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitDateClosed = 2
)

var (
	driverPath   string
	engine       string
	credsPath    string
	dayOfWeek    string
	teeTimes     string
	players      string
	homeURL      string
	headless     bool
	timeout      time.Duration
	probeTimeout time.Duration
	pollInterval time.Duration
	logFile      string
	logLevel     string
	trailPath    string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "teetime",
		Short: "Book the earliest open tee time on the next chosen weekday",
		Long: `teetime signs in to the club site, opens the tee time page for the next
occurrence of --day-of-week, claims the first of --tee-times still open and
fills the roster with --players.

Exit status is 0 when the run completes (booked or not), 2 when the date is
not yet open for reservations, and 1 on any other failure.

Example:
  teetime --day-of-week Saturday --tee-times "07:50|08:00" --players "Amor, Joe|Coley, David"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	f := rootCmd.Flags()
	f.StringVar(&driverPath, "driver-path", config.Env("TEETIME_DRIVER_PATH", ""), "Chrome/Chromium binary (default: auto-detect)")
	f.StringVar(&engine, "engine", config.Env("TEETIME_ENGINE", browser.EngineRod), "Browser engine: rod, chromedp")
	f.StringVar(&credsPath, "credentials", config.Env("TEETIME_CREDENTIALS", "./.credentials.txt"), "File whose first line is \"<username> <password>\"")
	f.StringVar(&dayOfWeek, "day-of-week", config.Env("TEETIME_DAY_OF_WEEK", "Tuesday"), "Weekday to book; always the next one after today")
	f.StringVar(&teeTimes, "tee-times", config.Env("TEETIME_TEE_TIMES", "08:20"), "Pipe-separated tee times in order of preference")
	f.StringVar(&players, "players", config.Env("TEETIME_PLAYERS", "Amor, Joe|Crovitz, Mat|Wagner, Robert|Coley, David"), "Pipe-separated player names as listed by the site")
	f.StringVar(&homeURL, "url", config.Env("TEETIME_URL", "https://theclubat12oaks.com/"), "Club site home page")
	f.BoolVar(&headless, "headless", envBool("TEETIME_HEADLESS", false), "Run the browser without a window")
	f.DurationVar(&timeout, "timeout", envDuration("TEETIME_TIMEOUT", 60*time.Second), "Deadline for each required page element")
	f.DurationVar(&probeTimeout, "probe-timeout", envDuration("TEETIME_PROBE_TIMEOUT", 200*time.Millisecond), "Deadline for optional checks and slot probes")
	f.DurationVar(&pollInterval, "poll-interval", envDuration("TEETIME_POLL_INTERVAL", interact.DefaultInterval), "Delay between element checks")
	f.StringVar(&logFile, "log-file", config.Env("TEETIME_LOG_FILE", logging.DefaultFile), "Rotating JSON log file (empty to disable)")
	f.StringVar(&logLevel, "log-level", config.Env("TEETIME_LOG_LEVEL", logging.DefaultLevel), "Log level: debug, info, warn, error")
	f.StringVar(&trailPath, "trail", config.Env("TEETIME_TRAIL", ""), "Write a GIF with one frame per step to this path")

	return rootCmd
}

func run(cmd *cobra.Command, _ []string) error {
	log, syncLog, err := logging.New(logging.Options{File: logFile, Level: logLevel})
	if err != nil {
		return &config.Error{Field: "log-level", Err: err}
	}
	defer syncLog()

	creds, err := config.LoadCredentials(credsPath)
	if err != nil {
		log.Error("unable to read credentials", zap.String("path", credsPath), zap.Error(err))
		return err
	}
	date, err := schedule.NextDateForWeekday(dayOfWeek, time.Now())
	if err != nil {
		log.Error("unable to compute target date", zap.Error(err))
		return err
	}
	req := buildRequest(date, teeTimes, players)
	if err := req.Validate(); err != nil {
		log.Error("invalid request", zap.Error(err))
		return err
	}

	log.Info("Searching Date", zap.String("date", date.Format("2006-01-02")))
	log.Info("Searching Times", zap.Strings("times", req.Times))
	log.Info("Players", zap.Strings("players", req.Players))

	open := func(ctx context.Context) (surface.Surface, error) {
		fmt.Printf("→ Launching browser (%s)... ", engine)
		s, err := browser.Launch(ctx, browser.Options{Engine: engine, Bin: driverPath, Headless: headless})
		if err != nil {
			fmt.Println("failed")
			return nil, err
		}
		fmt.Println("done")
		return s, nil
	}

	var (
		res booking.Result
		rec *trail.Recorder
	)
	err = booking.WithSession(cmd.Context(), creds, open, func(ctx context.Context, s *booking.Session) error {
		ui := interact.New(s.Surface, log, pollInterval)
		opts := booking.Options{HomeURL: homeURL, Timeout: timeout, ProbeTimeout: probeTimeout}
		if trailPath != "" {
			rec = trail.New(s.Surface, log)
			opts.Recorder = rec
		}
		m := booking.New(s, ui, roster.New(ui, log, probeTimeout, timeout), opts, log)

		fmt.Printf("→ Booking %s (%s)... ", date.Format("Mon Jan 2"), strings.Join(req.Times, ", "))
		var err error
		res, err = m.Run(ctx, req)
		if err != nil {
			fmt.Println("failed")
			return err
		}
		fmt.Println("done")
		return nil
	})

	if rec != nil {
		writeTrail(log, rec)
	}
	if err != nil {
		log.Error("run failed", zap.Stringer("state", res.State), zap.Error(err))
		return err
	}

	log.Info("run finished",
		zap.Stringer("state", res.State),
		zap.Bool("booked", res.Booked),
		zap.String("time", res.Slot),
		zap.Strings("party", res.Party),
	)
	fmt.Println(summary(date, res))
	return nil
}

// buildRequest splits the pipe-separated --tee-times and --players values.
func buildRequest(date time.Time, times, players string) booking.Request {
	return booking.Request{
		Date:    date,
		Times:   config.SplitList(times, "|"),
		Players: config.SplitList(players, "|"),
	}
}

func writeTrail(log *zap.Logger, rec *trail.Recorder) {
	fmt.Printf("→ Writing trail (%d frames)... ", len(rec.Steps()))
	size, err := rec.Write(trailPath, trail.Options{FPS: 1, MaxWidth: 800})
	if err != nil {
		fmt.Println("failed")
		log.Warn("unable to write trail", zap.String("path", trailPath), zap.Error(err))
		return
	}
	fmt.Printf("done (%.1f KB)\n", float64(size)/1024)
}

func summary(date time.Time, res booking.Result) string {
	if !res.Booked {
		return fmt.Sprintf("✗ No requested tee time was open on %s", date.Format("Mon Jan 2"))
	}
	return fmt.Sprintf("✓ Booked %s on %s for %s", res.Slot, date.Format("Mon Jan 2"), strings.Join(res.Party, "; "))
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case booking.IsFatalAbort(err):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitDateClosed
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Interrupted")
		return exitFailure
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(config.Env(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(config.Env(key, def.String()))
	if err != nil {
		return def
	}
	return v
}
