package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/config"
	"github.com/example/maintenance-scheduler/internal/directory"
	httptransport "github.com/example/maintenance-scheduler/internal/http"
	"github.com/example/maintenance-scheduler/internal/logging"
	"github.com/example/maintenance-scheduler/internal/metrics"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/memory"
	"github.com/example/maintenance-scheduler/internal/persistence/redisstore"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite"
	"github.com/example/maintenance-scheduler/internal/recurrence"
	"github.com/example/maintenance-scheduler/internal/sweeper"
)

// CLI is the command line surface. Flags override the matching SCHEDULER_* variables.
type CLI struct {
	Storage   string `help:"Storage backend (memory, sqlite or redis)." placeholder:"BACKEND"`
	Port      int    `help:"HTTP listen port."`
	SQLiteDSN string `name:"sqlite-dsn" help:"SQLite database path." placeholder:"PATH"`
	LogFile   string `help:"Write rotated JSON logs to this file as well as stdout." placeholder:"PATH"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API and the overdue sweep."`
	Migrate MigrateCmd `cmd:"" help:"Apply SQLite schema migrations and exit."`
	Project ProjectCmd `cmd:"" help:"Print upcoming service dates for a recurrence rule."`
}

func (c *CLI) apply(cfg *config.Config) {
	if c.Storage != "" {
		cfg.Storage = c.Storage
	}
	if c.Port > 0 {
		cfg.HTTPPort = c.Port
	}
	if c.SQLiteDSN != "" {
		cfg.SQLiteDSN = c.SQLiteDSN
	}
	if c.LogFile != "" {
		cfg.LogFile = c.LogFile
	}
}

// Runtime is bound into every command's Run method.
type Runtime struct {
	Ctx    context.Context
	Config config.Config
	Logger *slog.Logger
	Out    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run parses args and executes the selected command. Command output goes to out and
// structured logs to logOut.
func run(ctx context.Context, args []string, out, logOut io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("scheduler"),
		kong.Description("Recurring maintenance schedule service."),
		kong.UsageOnError(),
		kong.Writers(out, logOut),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cli.apply(&cfg)

	logger, closeLog := logging.New(logging.Options{
		File:   cfg.LogFile,
		Mirror: true,
		Level:  cfg.LogLevel,
		Stdout: logOut,
	})
	defer func() {
		if cerr := closeLog(); cerr != nil {
			fmt.Fprintf(logOut, "close log file: %v\n", cerr)
		}
	}()
	slog.SetDefault(logger)

	return kctx.Run(&Runtime{Ctx: ctx, Config: cfg, Logger: logger, Out: out})
}

// ServeCmd runs the API server until the process is signalled.
type ServeCmd struct {
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests on shutdown." default:"10s"`
}

func (c *ServeCmd) Run(rt *Runtime) error {
	app, err := newApp(rt.Ctx, rt.Config, rt.Logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.sweeper.Start(rt.Ctx, rt.Config.SweepSchedule, rt.Config.Location); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.Config.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-rt.Ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error("failed to shutdown server", "error", err)
		}
	}()

	rt.Logger.Info("scheduler API listening", "addr", server.Addr, "storage", rt.Config.Storage, "timezone", rt.Config.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// MigrateCmd applies the bundled SQLite migrations.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(rt *Runtime) error {
	storage, err := sqlite.Open(rt.Config.SQLiteDSN, rt.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			rt.Logger.Error("failed to close storage", "error", cerr)
		}
	}()

	applied, err := storage.Migrate(rt.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "applied %d migration(s) to %s\n", applied, rt.Config.SQLiteDSN)
	return nil
}

// ProjectCmd previews a recurrence rule against the configured calendar.
type ProjectCmd struct {
	Type           string `help:"Recurrence type." enum:"once,daily,weekly,monthly,quarterly,annually,custom" default:"monthly"`
	Interval       int    `help:"Periods between services." default:"1"`
	From           string `help:"Base service date (YYYY-MM-DD)." required:""`
	Count          int    `short:"n" help:"Number of dates to print." default:"5"`
	Completed      int    `help:"Services already performed, counted against --max-occurrences."`
	MaxOccurrences int    `help:"Stop after this many services in total."`
	End            string `help:"Last allowed service date (YYYY-MM-DD)."`
	SkipWeekends   bool   `help:"Move dates that fall on a weekend to the following Monday."`
	SkipHolidays   bool   `help:"Move dates that fall on a configured holiday to the next day."`
}

func (c *ProjectCmd) Run(rt *Runtime) error {
	loc := rt.Config.Location
	from, err := time.ParseInLocation(time.DateOnly, c.From, loc)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	rule := recurrence.Rule{
		Type:           recurrence.Type(c.Type),
		Interval:       c.Interval,
		MaxOccurrences: c.MaxOccurrences,
		SkipWeekends:   c.SkipWeekends,
		SkipHolidays:   c.SkipHolidays,
	}
	if c.End != "" {
		end, err := time.ParseInLocation(time.DateOnly, c.End, loc)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		rule.EndDate = &end
	}

	engine := recurrence.NewEngine(loc, rt.Config.Holidays)
	dates, err := engine.Preview(rule, from, nil, c.Completed, c.Count)
	if err != nil {
		return err
	}
	for _, date := range dates {
		fmt.Fprintln(rt.Out, date.In(loc).Format(time.DateOnly))
	}
	return nil
}

// app holds the wired service graph behind the HTTP handler.
type app struct {
	handler http.Handler
	service *application.ScheduleService
	feed    *application.CalendarFeed
	sweeper *sweeper.Sweeper
	store   scheduleStore
	logger  *slog.Logger

	stopFeed    context.CancelFunc
	feedDone    chan struct{}
	unsubscribe func()
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	dir, err := directory.LoadFile(cfg.DirectoryFile)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := recurrence.NewEngine(cfg.Location, cfg.Holidays)
	service := application.NewScheduleServiceWithLogger(newScheduleRepositoryAdapter(store), dir, engine, uuid.NewString, time.Now, logger)
	if err := service.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	var (
		sink           metrics.Sink = metrics.NewNoopSink()
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sink = metrics.NewPrometheusSink(registry, logger)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	feed := application.NewCalendarFeed(time.Now, logger)
	snapshots, unsubscribe := service.Subscribe()
	feedCtx, stopFeed := context.WithCancel(context.WithoutCancel(ctx))
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := feed.Run(feedCtx, snapshots); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("calendar feed stopped", "error", err)
		}
	}()

	sw := sweeper.New(service, sink, logger)
	if _, err := sw.Sweep(ctx); err != nil {
		logger.Warn("initial sweep failed", "error", err)
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Schedules:   httptransport.NewScheduleHandler(service, cfg.Location, time.Now, logger),
		Calendar:    httptransport.NewCalendarHandler(feed, cfg.Location, logger),
		Health:      store.Ping,
		Metrics:     metricsHandler,
		MetricsPath: cfg.MetricsPath,
		MetricsSink: sink,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	return &app{
		handler:     handler,
		service:     service,
		feed:        feed,
		sweeper:     sw,
		store:       store,
		logger:      logger,
		stopFeed:    stopFeed,
		feedDone:    feedDone,
		unsubscribe: unsubscribe,
	}, nil
}

// Close stops background work and releases the store.
func (a *app) Close() {
	a.sweeper.Stop()
	a.unsubscribe()
	a.stopFeed()
	<-a.feedDone
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

type scheduleStore interface {
	persistence.ScheduleRepository
	Ping(ctx context.Context) error
	Close() error
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (scheduleStore, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQLite:
		storage, err := sqlite.Open(cfg.SQLiteDSN, logger)
		if err != nil {
			return nil, err
		}
		applied, err := storage.Migrate(ctx)
		if err != nil {
			_ = storage.Close()
			return nil, err
		}
		logger.Info("sqlite storage ready", "dsn", cfg.SQLiteDSN, "migrations_applied", applied)
		return storage, nil
	case config.StorageRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		store := redisstore.New(client, cfg.RedisKeyPrefix)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("redis storage ready", "addr", cfg.RedisAddr, "prefix", cfg.RedisKeyPrefix)
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}
