// Command bookbloom is a terminal client for the BookBloom bookstore
// API: browse and search the catalog, manage the cart, check out, and
// view the account profile.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-bookbloom/client"
	"github.com/aluiziolira/go-bookbloom/config"
	"github.com/aluiziolira/go-bookbloom/session"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, client.ErrAuthRequired) {
			fmt.Fprintln(os.Stderr, "You are not logged in. Run `bookbloom login` first.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app carries the configured client into the command handlers. It is
// built once per invocation; no global singleton.
type app struct {
	cfg    *config.Config
	client *client.Client
	out    io.Writer

	baseURL   string
	timeout   time.Duration
	tokenFile string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	if value, ok := config.EnvString("BOOKBLOOM_BASE_URL"); ok {
		defaults.BaseURL = value
	}
	if value, ok, err := config.EnvDuration("BOOKBLOOM_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid BOOKBLOOM_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		defaults.Timeout = value
	}
	if value, ok := config.EnvString("BOOKBLOOM_TOKEN_FILE"); ok {
		defaults.TokenFile = value
	}

	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:           "bookbloom",
		Short:         "Terminal client for the BookBloom bookstore API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", defaults.BaseURL, "BookBloom API base URL")
	flags.DurationVar(&a.timeout, "timeout", defaults.Timeout, "Request timeout")
	flags.StringVar(&a.tokenFile, "token-file", defaults.TokenFile, "Session token file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newBooksCmd(a),
		newCartCmd(a),
		newCheckoutCmd(a),
		newProfileCmd(a),
	)
	return root
}

func (a *app) init() error {
	logger, level := newLogger(a.verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = a.baseURL
	cfg.Timeout = a.timeout
	cfg.TokenFile = a.tokenFile
	cfg.Verbose = a.verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := session.NewStore(cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	c, err := client.New(cfg, store)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.client = c
	return nil
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
