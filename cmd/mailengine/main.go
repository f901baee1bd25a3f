// Command mailengine runs the email queue: the HTTP API, the periodic drain
// and the job workers, all against one PostgreSQL database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jmptrader/WebVella-ERP/internal/config"
	"github.com/jmptrader/WebVella-ERP/internal/httpapi"
	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/internal/metrics"
	"github.com/jmptrader/WebVella-ERP/internal/repository"
	"github.com/jmptrader/WebVella-ERP/internal/tasks"
	"github.com/jmptrader/WebVella-ERP/pkg/cache"
	"github.com/jmptrader/WebVella-ERP/pkg/db"
	"github.com/jmptrader/WebVella-ERP/pkg/health"
	"github.com/jmptrader/WebVella-ERP/pkg/job"
	"github.com/jmptrader/WebVella-ERP/pkg/logger"
	"github.com/jmptrader/WebVella-ERP/pkg/redis"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mailengine:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithSentry(cfg.Log, cfg.Sentry,
		logger.ContextAttr(httpapi.RequestIDAttr),
		logger.ContextAttr("drain_id"),
		logger.ContextAttr("email_id"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pool  *pgxpool.Pool
		rdb   goredis.UniversalClient
		hooks []func(context.Context) error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pool, err = db.Connect(gctx, cfg.DB)
		return err
	})
	if cfg.Redis.Enabled() {
		g.Go(func() error {
			var err error
			rdb, err = redis.Open(gctx, cfg.Redis)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(err, closeAll(ctx, pool, rdb))
	}

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, pool, repository.Migrations, repository.MigrationsDir, cfg.DB.MigrationsTable, log); err != nil {
			return errors.Join(err, closeAll(ctx, pool, rdb))
		}
		if err := job.Migrate(ctx, pool, log); err != nil {
			return errors.Join(err, closeAll(ctx, pool, rdb))
		}
	}

	checks := health.Checks{"db": db.Healthcheck(pool)}

	var services cache.Cache[mail.ServiceRecord]
	if rdb != nil {
		services = cache.NewRedis[mail.ServiceRecord](rdb, nil, cache.WithPrefix("mail:smtp_service"))
		checks["redis"] = health.Optional(redis.Healthcheck(rdb))
	} else {
		// Process-local: other processes' writes are picked up at the next drain.
		services = cache.NewMemory[mail.ServiceRecord]()
	}

	store := repository.NewServices(pool)
	directory := mail.NewCachedDirectory(mail.NewStoreDirectory(store), services, cfg.Queue.ServiceCacheTTL, log)
	observer := metrics.New()

	// The kicker enqueues through the job manager, which is built after the
	// mail manager its tasks depend on.
	late := &tasks.LateEnqueuer{}
	kicker := tasks.NewKicker(late)

	manager := mail.NewManager(
		repository.NewEmails(pool, repository.WithInsertHook(kicker.KickTx)),
		store,
		directory,
		mail.NewSMTPTransport(cfg.SMTP),
		mail.WithLogger(log),
		mail.WithObserver(observer),
		mail.WithQueueNotifier(kicker),
		mail.WithSendTimeout(cfg.SMTP.SendTimeout),
		mail.WithServiceRefresh(rdb == nil),
	)

	jobs, err := job.NewManager(pool,
		job.WithLogger(log),
		job.WithMaxWorkers(cfg.Queue.Workers),
		job.WithQueue(tasks.KickQueue, tasks.KickWorkers),
		job.WithScheduledTask(tasks.NewProcessQueue(manager, cfg.Queue.Schedule, log)),
		job.WithTask[tasks.SendEmailPayload](tasks.NewSendEmail(manager)),
	)
	if err != nil {
		return errors.Join(err, closeAll(ctx, pool, rdb))
	}
	late.Bind(jobs)
	checks["jobs"] = job.Healthcheck(jobs)

	if cfg.Queue.ServicesFile != "" {
		f, err := config.LoadSeedFile(cfg.Queue.ServicesFile)
		if err != nil {
			return errors.Join(err, closeAll(ctx, pool, rdb))
		}
		if _, err := config.Seed(ctx, manager, f, log); err != nil {
			log.ErrorContext(ctx, "smtp service seeding incomplete", slog.Any("error", err))
		}
	}

	if err := jobs.Start(ctx); err != nil {
		return errors.Join(err, closeAll(ctx, pool, rdb))
	}

	hooks = append(hooks, jobs.Stop)
	if rdb != nil {
		hooks = append(hooks, redis.Shutdown(rdb))
	}
	hooks = append(hooks,
		func(context.Context) error { return services.Close() },
		db.Shutdown(pool),
		logger.FlushSentry(sentryFlushTimeout),
	)

	router := httpapi.NewRouter(manager,
		httpapi.WithLogger(log),
		httpapi.WithHealthChecks(checks),
		httpapi.WithMetrics(observer.Handler()),
	)
	return httpapi.Run(ctx, cfg.HTTP, router, log, hooks...)
}

// closeAll releases connections opened before startup failed.
func closeAll(ctx context.Context, pool *pgxpool.Pool, rdb goredis.UniversalClient) error {
	var errs []error
	if rdb != nil {
		errs = append(errs, redis.Shutdown(rdb)(ctx))
	}
	if pool != nil {
		errs = append(errs, db.Shutdown(pool)(ctx))
	}
	return errors.Join(errs...)
}
