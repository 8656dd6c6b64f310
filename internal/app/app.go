package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grvbrk/intra_catalog/internal/auth"
	"github.com/grvbrk/intra_catalog/internal/config"
	"github.com/grvbrk/intra_catalog/internal/handlers"
	"github.com/grvbrk/intra_catalog/internal/media"
	"github.com/grvbrk/intra_catalog/internal/middlewares"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/grvbrk/intra_catalog/migrations"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Application struct {
	Logger            zerolog.Logger
	Config            *config.Config
	AdminOauth        *auth.AdminGoogleOauth
	AdminSessions     *auth.AdminSessions
	MiddlewareHandler *middlewares.MiddlewareHandler
	CatalogHandler    *handlers.CatalogHandler
	AdminHandler      *handlers.AdminHandler

	db          *sql.DB
	redisClient *redis.Client
	detach      func()
}

type tables struct {
	videos   store.VideoTable
	vehicles store.VehicleTable
	users    store.UserStore
}

func NewApplication(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	app := &Application{Logger: logger, Config: cfg}

	t, err := app.openTables(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	validate, err := models.NewValidator()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}

	var uploader media.Uploader
	if cfg.S3Bucket != "" {
		s3Uploader, err := media.NewS3Uploader(ctx, media.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		uploader = s3Uploader
	} else {
		logger.Warn().Msg("S3_BUCKET not set, vehicle image uploads disabled")
	}

	cookieStore := auth.NewCookieStore(auth.SessionOptions{
		AuthKey:       cfg.SessionAuthKey,
		EncryptionKey: cfg.SessionEncryptionKey,
		Production:    cfg.IsProduction(),
		Domain:        cfg.CookieDomain,
	})
	if len(cfg.SessionAuthKey) == 0 {
		logger.Warn().Msg("SESSION_AUTH_KEY not set, admin sessions will not survive a restart")
	}

	app.AdminSessions = auth.NewAdminSessions(cookieStore, logger)
	app.AdminOauth = auth.NewAdminGoogleOauth(auth.AdminOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		BackendURL:   cfg.BackendURL,
		FrontendURL:  cfg.AdminFrontendURL,
		AdminEmails:  cfg.AdminEmails,
	}, cookieStore, app.AdminSessions, t.users, logger)

	workspaces := handlers.NewAdminWorkspaces(t.videos, t.vehicles, validate, logger)
	app.detach = workspaces.Attach(app.AdminSessions)

	app.CatalogHandler = handlers.NewCatalogHandler(t.videos, t.vehicles, logger)
	app.AdminHandler = handlers.NewAdminHandler(workspaces, t.users, app.AdminSessions, uploader, logger)
	app.MiddlewareHandler = middlewares.NewMiddlewareHandler(logger, app.AdminSessions, t.users, cfg.AllowedOrigins)

	return app, nil
}

// openTables picks Postgres when DB_URL is set and in-memory tables
// otherwise, then puts the Redis listing cache in front when configured.
func (app *Application) openTables(cfg *config.Config, logger zerolog.Logger) (*tables, error) {
	t := &tables{}

	if cfg.DBURL != "" {
		pgDB, err := store.ConnectPGDB(cfg.DBURL, logger)
		if err != nil {
			return nil, err
		}
		app.db = pgDB

		if err := store.MigrateFS(pgDB, migrations.FS, "."); err != nil {
			return nil, fmt.Errorf("postgres migration failed: %w", err)
		}
		logger.Info().Msg("database migrated")

		t.videos = store.NewPostgresVideoStore(pgDB)
		t.vehicles = store.NewPostgresVehicleStore(pgDB)
		t.users = store.NewPostgresUserStore(pgDB)
	} else {
		logger.Warn().Msg("DB_URL not set, using in-memory tables")
		t.videos = store.NewMemoryVideoStore()
		t.vehicles = store.NewMemoryVehicleStore()
		t.users = store.NewMemoryUserStore()
	}

	if cfg.RedisAddr != "" {
		client, err := store.ConnectRedis(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		app.redisClient = client

		t.videos = store.NewCachedTable("video", t.videos, client, cfg.CacheTTL, logger)
		t.vehicles = store.NewCachedTable("vehicle", t.vehicles, client, cfg.CacheTTL, logger)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("listing cache enabled")
	}

	return t, nil
}

func (app *Application) Close() {
	if app.detach != nil {
		app.detach()
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.Logger.Warn().Err(err).Msg("error closing redis")
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.Logger.Warn().Err(err).Msg("error closing database")
		}
	}
}
