package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/config"
	"github.com/rybkr/argroute/internal/history"
	"github.com/rybkr/argroute/internal/termcolor"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const appName = "argroute"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	gf, args, err := parseGlobalFlags(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return cli.DefaultCodes().Fail
	}

	// --version is handled before dispatch; the dispatcher would treat it
	// as an unknown command.
	if gf.version {
		printVersion(os.Stdout)
		return 0
	}

	cfg, err := config.Load(gf.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return cli.DefaultCodes().Fail
	}
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, configPath: gf.configPath, colorMode: gf.resolveColor(cfg)}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			slog.Warn("History disabled", "path", cfg.History.Path, "err", err)
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					slog.Error("Failed to close history", "err", err)
				}
			}()
			e.history = store
		}
	}

	app, err := newApp(e, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return cli.DefaultCodes().Fail
	}
	return app.Run(ctx, args)
}

// env is what command handlers need beyond their invocation.
type env struct {
	cfg        config.Config
	configPath string
	colorMode  termcolor.ColorMode
	history    *history.Store // nil when disabled
}

// newApp builds the application from e. A local app runs in the user's own
// terminal. The app handed to the server is not local: it leaves out serve
// and the http commands, and docs cannot write files, since its callers are
// remote.
func newApp(e *env, local bool) (*cli.App, error) {
	app := cli.NewApp(appName, version)
	app.Description = "A demo of typo-tolerant command dispatch with one- and two-word commands."
	app.Color = termcolor.NewWriter(os.Stderr, e.colorMode)
	app.Width = termcolor.Width(os.Stderr)
	app.Logger = slog.Default()
	app.Globals = newGlobalFlags().flagSet()
	e.cfg.Apply(app)
	if e.history != nil {
		app.Recorder = e.history
	}

	if err := registerCommands(app, e, local); err != nil {
		return nil, err
	}
	return app, nil
}

type registration struct {
	reg  cli.Registration
	opts []cli.Option
}

func registerCommands(app *cli.App, e *env, local bool) error {
	regs := []registration{
		{reg: cli.Type("PingCommand", func() cli.Handler { return &pingCommand{} })},
		{reg: cli.Func("hello", runHello, helloDoc), opts: []cli.Option{cli.WithFlags(helloFlags)}},
		{reg: cli.Type("MathSumCommand", func() cli.Handler { return &mathSumCommand{} })},
		{reg: cli.Type("MathProdCommand", func() cli.Handler { return &mathProdCommand{} })},
	}
	if local {
		regs = append(regs,
			registration{reg: httpCommand("GET")},
			registration{reg: httpCommand("POST")},
			registration{reg: httpCommand("DELETE")},
		)
	}
	regs = append(regs,
		registration{reg: cli.Type("HistoryListCommand", func() cli.Handler { return &historyListCommand{store: e.history} })},
		registration{reg: cli.Type("HistoryStatsCommand", func() cli.Handler { return &historyStatsCommand{store: e.history} })},
		registration{reg: cli.Type("DocsCommand", func() cli.Handler { return &docsCommand{app: app, local: local} })},
		registration{reg: cli.Func("version", runVersion, "Show version information")},
	)
	if local {
		regs = append(regs, registration{reg: cli.Type("ServeCommand", func() cli.Handler { return &serveCommand{env: e} })})
	}

	for _, r := range regs {
		if err := app.AddCommand(r.reg, r.opts...); err != nil {
			return err
		}
	}
	return nil
}

// initLogger installs a text handler on stderr at the configured level.
func initLogger(cfg config.Config) {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "argroute %s\n", version)
	fmt.Fprintf(w, "  commit:     %s\n", commit)
	fmt.Fprintf(w, "  built:      %s\n", buildDate)
	fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func runVersion(inv *cli.Invocation) (cli.Result, error) {
	printVersion(inv.Stdout)
	return cli.OK(), nil
}
