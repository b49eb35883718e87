package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/spf13/afero"
	_ "modernc.org/sqlite"

	"laptopkita/internal/logging"
	"laptopkita/internal/server/config"
	"laptopkita/internal/server/handlers"
	httpapi "laptopkita/internal/server/http"
	"laptopkita/internal/server/repos"
	"laptopkita/internal/server/services"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if logger.Level() != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	dialect := cfg.Dialect()
	db, err := sql.Open(dialect, cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	if dialect == repos.DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := repos.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Errorf("migrations: %v", err)
		os.Exit(1)
	}

	images, err := repos.NewImageStore(afero.NewOsFs(), cfg.ImageDir)
	if err != nil {
		logger.Errorf("image store: %v", err)
		os.Exit(1)
	}

	svc := services.NewCatalogService(repos.NewLaptopRepo(db, dialect), images, logger)
	h := handlers.NewLaptopHandler(svc, logger, cfg.MaxUploadBytes())
	router := httpapi.NewRouter(cfg, logger, h)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Infof("catalogd listening on :%s (%s)", cfg.Port, dialect)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
