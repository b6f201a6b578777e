package main

import (
	"context"
	"database/sql"
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
	_ "modernc.org/sqlite"

	emailPkg "boxdesk/internal/adapters/email"
	web "boxdesk/internal/adapters/http"
	"boxdesk/internal/adapters/storage"
	accountStore "boxdesk/internal/adapters/storage/account"
	boxStore "boxdesk/internal/adapters/storage/box"
	classTypeStore "boxdesk/internal/adapters/storage/classtype"
	coachStore "boxdesk/internal/adapters/storage/coach"
	"boxdesk/internal/adapters/storage/postgres"
	roomStore "boxdesk/internal/adapters/storage/room"
	savedSectionStore "boxdesk/internal/adapters/storage/savedsection"
	scheduleStore "boxdesk/internal/adapters/storage/schedule"
	"boxdesk/internal/application/orchestrators"
	"boxdesk/internal/application/planning"
	"boxdesk/internal/application/scheduling"
	"boxdesk/internal/application/workspace"
	"boxdesk/internal/config"
	"boxdesk/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// devAdminPassword is only used outside production when none is configured.
const devAdminPassword = "boxdesk-dev-password"

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"boxdesk.yaml"`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP server." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations and exit."`
}

// appContext is handed to every command's Run.
type appContext struct {
	cfg *config.Config
}

// ServeCmd starts the dashboard server.
type ServeCmd struct {
	Static string `help:"Directory served at /." default:"static"`
}

// MigrateCmd brings the schema up to date.
type MigrateCmd struct{}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("boxdesk"),
		kong.Description("Weekly class schedule and workout planner for CrossFit boxes"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	closer, err := logger.Init(logger.Config{Debug: cfg.Debug, Dir: cfg.LogDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := ctx.Run(&appContext{cfg: cfg}); err != nil {
		slog.Error("fatal", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

// backend bundles the stores for whichever database is configured.
type backend struct {
	accounts     accountStore.Store
	boxes        boxStore.Store
	rooms        roomStore.Store
	classTypes   classTypeStore.Store
	coaches      coachStore.Store
	instances    scheduleStore.InstanceStore
	savedLibrary savedSectionStore.Store
	closer       io.Closer

	// timed is nil on Postgres.
	timed *storage.TimedDB
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// openBackend opens Postgres when a DSN is configured and SQLite otherwise, migrating either.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("database_ready", "driver", "postgres")
		return &backend{
			accounts:     postgres.NewAccountStore(pool),
			boxes:        postgres.NewBoxStore(pool),
			rooms:        postgres.NewRoomStore(pool),
			classTypes:   postgres.NewClassTypeStore(pool),
			coaches:      postgres.NewCoachStore(pool),
			instances:    postgres.NewInstanceStore(pool),
			savedLibrary: postgres.NewSavedSectionStore(pool),
			closer:       closeFunc(func() error { pool.Close(); return nil }),
		}, nil
	}

	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	slog.Info("database_ready", "driver", "sqlite", "path", cfg.DBPath, "schema", storage.LatestSchemaVersion())

	timed := storage.NewTimedDB(db, cfg.SlowQueryMs)
	return &backend{
		accounts:     accountStore.NewSQLiteStore(timed),
		boxes:        boxStore.NewSQLiteStore(timed),
		rooms:        roomStore.NewSQLiteStore(timed),
		classTypes:   classTypeStore.NewSQLiteStore(timed),
		coaches:      coachStore.NewSQLiteStore(timed),
		instances:    scheduleStore.NewSQLiteStore(timed),
		savedLibrary: savedSectionStore.NewSQLiteStore(timed),
		closer:       db,
		timed:        timed,
	}, nil
}

// Run applies migrations and exits.
func (c *MigrateCmd) Run(app *appContext) error {
	b, err := openBackend(context.Background(), app.cfg)
	if err != nil {
		return err
	}
	return b.closer.Close()
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (c *ServeCmd) Run(app *appContext) error {
	cfg := app.cfg
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.closer.Close()

	adminPassword := cfg.AdminPassword
	if adminPassword == "" && !cfg.IsProduction() {
		adminPassword = devAdminPassword
		slog.Warn("seed_event", "event", "dev_admin_password", "email", cfg.AdminEmail)
	}
	seeded, err := orchestrators.ExecuteSeedBox(ctx, orchestrators.SeedBoxInput{
		BoxName:       "Boxdesk CrossFit",
		Timezone:      cfg.Timezone,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: adminPassword,
	}, orchestrators.SeedBoxDeps{
		BoxStore:       b.boxes,
		RoomStore:      b.rooms,
		ClassTypeStore: b.classTypes,
		CoachStore:     b.coaches,
		AccountStore:   b.accounts,
	})
	if err != nil {
		return fmt.Errorf("seed box: %w", err)
	}
	slog.Info("seed_event", "event", "seed_done", "box_id", seeded.BoxID, "seeded", seeded.Seeded)

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
		slog.Info("email_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() && len(cfg.AlertsTo) > 0 {
			slog.Warn("email_configured", "provider", "noop", "reason", "resend_key not set; commit alerts are disabled")
		}
	}

	plan := planning.NewService(b.savedLibrary, nil)
	registry := workspace.NewRegistry(workspace.NewFactory(workspace.FactoryDeps{
		Boxes: b.boxes,
		Schedule: scheduling.Stores{
			Rooms:      b.rooms,
			ClassTypes: b.classTypes,
			Coaches:    b.coaches,
			Instances:  b.instances,
		},
		Planning:    plan,
		Location:    cfg.Location(),
		AlertSender: sender,
		AlertsTo:    cfg.AlertsTo,
	}), cfg.SessionTTL, nil)
	if err := registry.Start(cfg.ReaperSpec); err != nil {
		return err
	}
	defer registry.Stop()

	handler, err := web.NewMux(web.Deps{
		Stores: &web.Stores{
			AccountStore:   b.accounts,
			BoxStore:       b.boxes,
			RoomStore:      b.rooms,
			ClassTypeStore: b.classTypes,
			CoachStore:     b.coaches,
		},
		Workspaces:         registry,
		Planning:           plan,
		StaticDir:          c.Static,
		CSRFKey:            cfg.CSRFKey,
		Production:         cfg.IsProduction(),
		TrustedOrigins:     cfg.TrustedOrigins,
		RateLimitPerSecond: int(cfg.RateLimitPerSecond),
		SlowRequestMs:      cfg.SlowQueryMs * 4,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start", "version", version, "addr", cfg.Listen, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	if b.timed != nil {
		slog.Info("server_stop", "reason", "signal", "slow_queries", b.timed.SlowQueries())
	} else {
		slog.Info("server_stop", "reason", "signal")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
