package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/imrishuroy/go-crm-graph/internal/crm"
	"github.com/imrishuroy/go-crm-graph/internal/handlers"
)

func setupRouter(cfg handlers.HandlerConfig) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(cfg.Logger))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if err := handlers.RegisterGraphQLRoutes(r, cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// openDatabase picks Postgres when DATABASE_URL is set, otherwise a local
// SQLite file (CRM_DB, default crm.db).
func openDatabase() (*sql.DB, crm.Dialect, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		return db, crm.DialectPostgres, err
	}
	path := os.Getenv("CRM_DB")
	if path == "" {
		path = "crm.db"
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	return db, crm.DialectSQLite, err
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	db, dialect, err := openDatabase()
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store := crm.NewStore(db, dialect)
	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	cfg := handlers.HandlerConfig{
		Service: crm.NewService(store),
		Logger:  logger,
	}

	r, err := setupRouter(cfg)
	if err != nil {
		logger.Error("failed to build schema", "error", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server listening", "addr", ":"+port, "dialect", dialect)
	if err := r.Run(":" + port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
