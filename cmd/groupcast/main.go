package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/danhigham/groupcast/internal/config"
	"github.com/danhigham/groupcast/internal/directory"
	"github.com/danhigham/groupcast/internal/dispatch"
	"github.com/danhigham/groupcast/internal/session"
	"github.com/danhigham/groupcast/internal/state"
	"github.com/danhigham/groupcast/internal/telegram"
)

// disconnectTimeout bounds the shutdown of live connections.
const disconnectTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cfgPath string
	flagSet := pflag.NewFlagSet("groupcast", pflag.ContinueOnError)
	flagSet.StringVar(&cfgPath, "config", filepath.Join(config.Dir(), "config.yaml"), "path to the config file")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage()
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printUsage()
		return 0
	}

	name, rest := flagSet.Arg(0), flagSet.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		return 2
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config from %s: %v\n", cfgPath, err)
		if errors.Is(err, config.ErrInvalidCredentials) {
			fmt.Fprintf(os.Stderr, "\nSet API_ID and API_HASH in the environment or a .env file, or add to %s:\n", cfgPath)
			fmt.Fprintf(os.Stderr, "telegram:\n  api_id: YOUR_API_ID\n  api_hash: \"YOUR_API_HASH\"\n")
			fmt.Fprintf(os.Stderr, "\nGet API credentials from https://my.telegram.org\n")
		}
		return 1
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := newApp(cfg, logger)
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer dcancel()
		a.sessions.DisconnectAll(dctx)
	}()

	logger.Info("command started", zap.String("command", name))
	if err := cmd.run(ctx, a, rest); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "error: %v\nusage: groupcast %s\n", err, cmd.usage)
			return 2
		}
		logger.Error("command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger logs to a file in the config directory; the terminal belongs
// to the prompts and the progress view.
func newLogger(level string) (*zap.Logger, error) {
	if err := os.MkdirAll(config.Dir(), 0700); err != nil {
		return nil, err
	}
	logPath := filepath.Join(config.Dir(), "groupcast.log")
	logCfg := zap.NewDevelopmentConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{logPath}
	logCfg.ErrorOutputPaths = []string{logPath}
	return logCfg.Build()
}

// app holds the wired components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	sessions  *session.Manager
	store     *state.Store
	directory *directory.Directory
	engine    *dispatch.Engine
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	dialer := telegram.NewDialer(cfg.Telegram.APIID, cfg.Telegram.APIHash, logger)
	sessions := session.NewManager(cfg.SessionDir, dialer, logger)
	// The hook runs with the store locked and must not call back into it.
	store := state.New(func() {
		logger.Debug("group snapshot or selection changed")
	})
	return &app{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		store:     store,
		directory: directory.New(sessions, store, logger),
		engine: dispatch.New(sessions, dispatch.Delays{
			Message: cfg.Delays.MessageDuration(),
			Group:   cfg.Delays.GroupDuration(),
			Loop:    cfg.Delays.LoopDuration(),
		}, logger),
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `groupcast: send one message to many Telegram groups from your own accounts.

Usage:
  groupcast [--config PATH] <command> [arguments]

Commands:
`)
	for _, name := range commandOrder {
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %-44s %s\n", c.usage, c.summary)
	}
	fmt.Fprintf(os.Stderr, `
Credentials are read from %s, a .env file or the API_ID and
API_HASH environment variables. Sessions are kept in the session directory
and reused until you log out.
`, filepath.Join(config.Dir(), "config.yaml"))
}
