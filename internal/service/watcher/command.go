package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/outage-watch/internal/api/grpc/monitor"
	"github.com/oshokin/outage-watch/internal/api/http/status"
	commands "github.com/oshokin/outage-watch/internal/api/telegram"
	"github.com/oshokin/outage-watch/internal/config"
	"github.com/oshokin/outage-watch/internal/domain/outage"
	"github.com/oshokin/outage-watch/internal/logger"
	"github.com/oshokin/outage-watch/internal/metrics"
	"github.com/oshokin/outage-watch/internal/notify"
	botapi "github.com/oshokin/outage-watch/internal/notify/telegram"
	"github.com/oshokin/outage-watch/internal/publisher"
	repository "github.com/oshokin/outage-watch/internal/repository/state"
	"github.com/oshokin/outage-watch/internal/service/instance"
	"github.com/oshokin/outage-watch/internal/source"
	"github.com/oshokin/outage-watch/internal/version"
)

// Options controls the watcher process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Once runs a single cycle and exits.
	Once bool
	// DryRun logs notifications instead of sending them.
	DryRun bool
}

// shutdownTimeout bounds the graceful stop of the HTTP server.
const shutdownTimeout = 5 * time.Second

// Run loads the configuration, starts the optional servers and polls until ctx is canceled.
//
//nolint:cyclop,funlen // Wiring reads top to bottom; splitting would scatter it.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "outage-watch")

	// Load configuration first, everything else depends on it.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}

	defer func() {
		_ = closeLog.Close()
	}()

	// Refuse to run next to another writer of the same state files.
	lock, err := instance.Acquire(cfg.HistoryFile + ".pid")
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}

	defer func() {
		if err := lock.Release(); err != nil {
			logger.WarnKV(ctx, "Instance lock not released", "error", err)
		}
	}()

	notifier, bot, err := newNotifier(cfg, opts.DryRun)
	if err != nil {
		return err
	}

	feed, err := newPublisher(cfg, opts.DryRun)
	if err != nil {
		return err
	}

	defer func() {
		if err := feed.Close(); err != nil {
			logger.WarnKV(ctx, "Event feed not closed cleanly", "error", err)
		}
	}()

	healthServer := health.NewServer()
	collectors := metrics.New()
	var repo repository.Repository = repository.NewFileRepository(cfg.HistoryFile, cfg.RenderedFile,
		repository.WithLocation(cfg.Location()))

	// A dry run must not make the real service believe messages were sent.
	if opts.DryRun {
		repo = repository.NewOverlay(repo)
	}

	// Serving until a fetch fails.
	healthServer.SetServingStatus(monitor.ServiceName, healthpb.HealthCheckResponse_SERVING)

	svc := newService(dependencies{
		reader: source.NewHTMLReader(cfg.Source.URL, cfg.Source.UserAgent, cfg.Addresses, cfg.Timeout),
		repo:   repo,
		classifier: outage.NewClassifier(
			cfg.Classifier.ActiveTokens,
			cfg.Classifier.DisconnectedTokens,
		),
		notifier:  notifier,
		publisher: feed,
		metrics:   collectors,
		groups:    outage.Groups(cfg.Groups),
		location:  cfg.Location(),
		onHealth: func(serving bool) {
			healthServer.SetServingStatus(monitor.ServiceName, servingStatus(serving))
			healthServer.SetServingStatus("", servingStatus(serving))
		},
	})

	logger.InfoKV(ctx, "Watching outage schedule",
		"url", cfg.Source.URL,
		"addresses", cfg.Addresses,
		"interval", cfg.PollInterval.String(),
		"history_file", cfg.HistoryFile,
		"dry_run", opts.DryRun,
		"version", version.Short())

	if opts.Once {
		_, err = svc.TriggerCheck(ctx)

		return err
	}

	var wg sync.WaitGroup

	// errs collects fatal errors of the background servers.
	errs := make(chan error, 3)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.GRPCAddress != "" {
		lis, err := (&net.ListenConfig{}).Listen(runCtx, "tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
		}

		grpcServer := grpc.NewServer()
		monitor.RegisterMonitorServiceServer(grpcServer, monitor.NewServer(svc))
		healthpb.RegisterHealthServer(grpcServer, healthServer)

		wg.Go(func() {
			serveGRPC(runCtx, grpcServer, lis, errs)
		})
	}

	if cfg.HTTPAddress != "" {
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           status.NewRouter(repo, svc, collectors.Handler(), nil),
			ReadHeaderTimeout: cfg.Timeout,
		}

		wg.Go(func() {
			serveHTTP(runCtx, httpServer, errs)
		})
	}

	if bot != nil && cfg.Telegram.Commands {
		listener := commands.NewListener(bot, svc, cfg.PollInterval, commands.WithAdmin(cfg.Telegram.AdminID))

		wg.Go(func() {
			if err := listener.Run(runCtx); err != nil && runCtx.Err() == nil {
				logger.ErrorKV(runCtx, "Telegram commands stopped", "error", err)
			}
		})
	}

	err = poll(runCtx, svc, cfg.PollInterval, errs)

	cancel()
	wg.Wait()

	return err
}

// poll runs a cycle immediately and then on every tick until ctx ends or a server fails.
func poll(ctx context.Context, svc *service, interval time.Duration, errs <-chan error) error {
	if _, err := svc.TriggerCheck(ctx); err != nil {
		logger.ErrorKV(ctx, "Cycle failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case err := <-errs:
			return err
		case <-ticker.C:
			if _, err := svc.TriggerCheck(ctx); err != nil && ctx.Err() == nil {
				logger.ErrorKV(ctx, "Cycle failed", "error", err)
			}
		}
	}
}

// serveGRPC serves until ctx ends, then stops gracefully.
func serveGRPC(ctx context.Context, server *grpc.Server, lis net.Listener, errs chan<- error) {
	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		server.GracefulStop()
		close(done)
	}()

	logger.InfoKV(ctx, "GRPC trigger listening", "listen_address", lis.Addr().String())

	if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		errs <- fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")
}

// serveHTTP serves until ctx ends, then shuts down.
func serveHTTP(ctx context.Context, server *http.Server, errs chan<- error) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Status API listening", "listen_address", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs <- fmt.Errorf("serve HTTP: %w", err)
	}
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

// Close calls f.
func (f closerFunc) Close() error {
	return f()
}

// servingStatus maps a boolean to the health enum.
func servingStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}

	return healthpb.HealthCheckResponse_NOT_SERVING
}

// setupLogger applies the level and the optional rotating file.
func setupLogger(cfg config.LogConfig) (io.Closer, error) {
	level, ok := logger.ParseLogLevel(cfg.Level)
	if !ok {
		logger.Warnf(context.Background(), "Unknown log level %q, using info", cfg.Level)
	}

	logger.SetLevel(level)

	if cfg.File == "" {
		return closerFunc(func() error { return nil }), nil
	}

	fileLogger, closer, err := logger.NewWithFile(logger.AtomicLevel(), logger.FileOptions{
		Pattern:      cfg.File,
		MaxAge:       cfg.MaxAge,
		RotationTime: cfg.RotationTime,
	})
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger.SetLogger(fileLogger)

	return closer, nil
}

// newNotifier picks the notification transport. The command bot is nil when
// Telegram is not configured.
func newNotifier(cfg *config.Config, dryRun bool) (notify.Notifier, *botapi.Client, error) {
	if cfg.Telegram.Token == "" {
		return notify.LogNotifier{}, nil, nil
	}

	// Long polls for commands must fit into one HTTP call.
	bot, err := botapi.NewClient(cfg.Telegram.Token, cfg.Timeout+commands.DefaultPollTimeout,
		botapi.WithBaseURL(cfg.Telegram.APIURL))
	if err != nil {
		return nil, nil, fmt.Errorf("create telegram client: %w", err)
	}

	if dryRun || !cfg.Telegram.Enabled() {
		return notify.LogNotifier{}, bot, nil
	}

	sender, err := botapi.NewClient(cfg.Telegram.Token, cfg.Timeout, botapi.WithBaseURL(cfg.Telegram.APIURL))
	if err != nil {
		return nil, nil, fmt.Errorf("create telegram client: %w", err)
	}

	return botapi.NewNotifier(sender, cfg.Telegram.ChannelID), bot, nil
}

// newPublisher picks the event feed. Dry runs publish nothing.
func newPublisher(cfg *config.Config, dryRun bool) (publisher.Publisher, error) {
	if dryRun || !cfg.Kafka.Enabled() {
		return publisher.NopPublisher{}, nil
	}

	feed, err := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("create event feed: %w", err)
	}

	return feed, nil
}
