package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/indigo-web/miniserve"
	"github.com/indigo-web/miniserve/actor"
	"github.com/indigo-web/miniserve/admin"
	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/internal/metrics"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type logOptions struct {
	level  string
	format string
}

func rootCmd() *cobra.Command {
	cfg := config.Default()
	var logOpts logOptions

	cmd := &cobra.Command{
		Use:   "miniserve",
		Short: "A minimal HTTP/1.1 server running a chatbot",
		Long: `miniserve serves the reference chat deployment:

  GET  /        the chat page
  POST /chat    appends the bot's reply to {"messages": [...]}
  POST /cancel  abandons the reply currently being generated`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), logOpts)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.NET.Addr, "addr", "a", cfg.NET.Addr, "Address to listen on")
	flags.BoolVar(&cfg.NET.KeepAlive, "keep-alive", cfg.NET.KeepAlive, "Serve multiple requests per connection")
	flags.DurationVar(&cfg.NET.ReadTimeout, "read-timeout", cfg.NET.ReadTimeout, "Idle connection timeout")
	flags.IntVar(&cfg.Body.MaxSize, "max-body", cfg.Body.MaxSize, "Maximal request body size in bytes")
	flags.IntVar(&cfg.Actor.MailboxSize, "mailbox", cfg.Actor.MailboxSize, "Actor mailbox capacity")
	flags.DurationVar(&cfg.Actor.HeartbeatPeriod, "heartbeat", cfg.Actor.HeartbeatPeriod, "Actor heartbeat period")
	flags.DurationVar(&cfg.Chat.GenerateDelay, "generate-delay", cfg.Chat.GenerateDelay, "Simulated generation time")
	flags.DurationVar(&cfg.Chat.RandomDelay, "random-delay", cfg.Chat.RandomDelay, "Simulated random source time")
	flags.Uint64Var(&cfg.Chat.Seed, "seed", cfg.Chat.Seed, "Random seed, 0 seeds from the clock")
	flags.StringVar(&cfg.Chat.DocsDir, "docs", cfg.Chat.DocsDir, "Directory of documents to retrieve from")
	flags.StringVar(&cfg.Transcript.Dir, "transcript-dir", cfg.Transcript.Dir, "Directory to store transcripts in")
	flags.StringVar(&cfg.Transcript.Bucket, "transcript-bucket", cfg.Transcript.Bucket, "S3 bucket to store transcripts in")
	flags.StringVar(&cfg.Transcript.Prefix, "transcript-prefix", cfg.Transcript.Prefix, "S3 key prefix")
	flags.StringVar(&cfg.Transcript.Region, "transcript-region", cfg.Transcript.Region, "S3 region")
	flags.StringVar(&cfg.Transcript.Endpoint, "transcript-endpoint", cfg.Transcript.Endpoint, "Custom S3 endpoint")
	flags.IntVar(&cfg.Transcript.FlushEvery, "transcript-flush", cfg.Transcript.FlushEvery, "Entries per persisted batch")
	flags.StringVar(&cfg.Admin.Addr, "admin-addr", cfg.Admin.Addr, "Address of /metrics and /heartbeats, empty disables")
	flags.StringVar(&logOpts.level, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&logOpts.format, "log-format", "text", "Log format (text, json)")

	cmd.AddCommand(versionCmd())

	return cmd
}

func newLogger(w io.Writer, opts logOptions) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.level)); err != nil {
		return nil, fmt.Errorf("bad log level: %w", err)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(opts.format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.format)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	slog.SetDefault(logger)
	m := metrics.New(true)
	hub := admin.NewHub(logger.With("component", "admin"))

	observers := []actor.Observer{hub}
	bot, err := miniserve.NewChatbot(cfg, miniserve.Collaborators{}, logger, m, observers...)
	if err != nil {
		return err
	}

	var adminServer *admin.Server
	if cfg.Admin.Addr != "" {
		adminServer = admin.New(cfg.Admin.Addr, m.Registry(), hub, logger.With("component", "admin"))
		if err = adminServer.Start(); err != nil {
			return errors.Join(fmt.Errorf("admin server: %w", err), bot.Close(ctx))
		}
	}

	app := miniserve.New(cfg).
		WithLogger(logger.With("component", "server")).
		WithMetrics(m)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		app.Stop()
	}()

	serveErr := app.Serve(bot.Router)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{serveErr, bot.Close(shutdownCtx)}
	if adminServer != nil {
		errs = append(errs, adminServer.Shutdown(shutdownCtx))
	}

	return errors.Join(errs...)
}
