package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	classroom "github.com/goliatone/go-classroom"
)

func main() {
	_ = godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("classroom"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := classroom.NewConfigFromEnv()

	if cfg.SigningKey == "" {
		// not fatal: endpoints that need the key report an internal error
		lgr.GetLogger("boot").Warn("JWT_SECRET is not set, token endpoints will fail until it is configured")
	}

	db := openDatabase(cfg)
	defer db.Close()

	pingDatabase(db, lgr.GetLogger("db"))

	repo := classroom.NewRepositoryManager(db)
	repo.MustValidate()

	provider := classroom.NewUserProvider(repo.Users()).
		WithLogger(lgr.GetLogger("auth:provider"))

	auther := classroom.NewAuthenticator(provider, cfg).
		WithLogger(lgr.GetLogger("auth"))

	lifecycle := classroom.NewRequestLifecycle(repo,
		classroom.WithLifecycleLogger(lgr.GetLogger("lifecycle")),
	)

	ctrl := classroom.NewController(auther, auther.TokenService(), repo, lifecycle,
		classroom.WithControllerLogger(lgr.GetLogger("http")),
	)

	app := fiber.New(fiber.Config{
		AppName:      "go-classroom",
		ErrorHandler: classroom.HTTPErrorHandler(lgr.GetLogger("http")),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Classroom request API is running")
	})

	ctrl.RegisterRoutes(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		lgr.GetLogger("boot").Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			lgr.GetLogger("boot").Error("server shutdown failed", "error", err)
		}
	}()

	lgr.GetLogger("boot").Info("server listening", "addr", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		lgr.GetLogger("boot").Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func openDatabase(cfg *classroom.AppConfig) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseURL)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)

	return bun.NewDB(sqldb, pgdialect.New())
}

// pingDatabase surfaces connectivity problems at boot without refusing to
// start, so the API can come up before the database does.
func pingDatabase(db *bun.DB, logger classroom.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var now time.Time
	if err := db.NewSelect().ColumnExpr("NOW()").Scan(ctx, &now); err != nil {
		logger.Warn("database ping failed", "error", err)
		return
	}

	logger.Info("database connected", "server_time", now.Format(time.RFC3339))
}
