package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/assignhub/internal/app/controllers"
	appMigrations "github.com/yigit/assignhub/internal/app/migrations"
	"github.com/yigit/assignhub/internal/app/notify"
	appRepos "github.com/yigit/assignhub/internal/app/repositories"
	appRoutes "github.com/yigit/assignhub/internal/app/routes"
	appServices "github.com/yigit/assignhub/internal/app/services"
	"github.com/yigit/assignhub/internal/config"
	"github.com/yigit/assignhub/internal/db"
	appMiddleware "github.com/yigit/assignhub/internal/middleware"
	pkgAuth "github.com/yigit/assignhub/internal/pkg/auth"
	"github.com/yigit/assignhub/internal/pkg/email"
	"github.com/yigit/assignhub/internal/pkg/filestorage"
	"github.com/yigit/assignhub/internal/pkg/helpers"
	"github.com/yigit/assignhub/internal/pkg/logger"
	"github.com/yigit/assignhub/internal/pkg/metrics"
	"github.com/yigit/assignhub/internal/pkg/pubsub"
	"github.com/yigit/assignhub/internal/pkg/websocket"
	"github.com/yigit/assignhub/internal/scheduler"
	"github.com/yigit/assignhub/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Database            *db.PostgresDB
	Repos               *appRepos.Repositories
	JWTService          *pkgAuth.JWTService
	Relay               pubsub.Relay
	Hub                 *websocket.Hub
	RelayConsumer       *websocket.RelayConsumer
	Dispatcher          *notify.Dispatcher
	Scheduler           *scheduler.Scheduler
	FileStorage         *filestorage.LocalStorage
	AuthService         appServices.AuthService
	UserService         appServices.UserService
	AssignmentService   appServices.AssignmentService
	SubmissionService   appServices.SubmissionService
	NotificationService appServices.NotificationService
	AuthMiddleware      *appMiddleware.AuthMiddleware
	Controllers         appRoutes.Controllers
	Logger              zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.EqualFold(cfg.Logging.Format, "text"),
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects to Postgres, applies migrations and optionally seeds default data.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := RunMigrations(ctx, database.Pool, cfg.Database.MigrationsDir, lgr); err != nil {
		database.Close()
		return nil, err
	}

	if cfg.Database.SeedOnStart {
		if err := seed.CreateDefaultData(ctx, database.Pool, lgr); err != nil {
			// Partial seed data is not fatal
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return database, nil
}

// RunMigrations applies every pending SQL file of dir
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, lgr zerolog.Logger) error {
	lgr.Info().Str("dir", dir).Msg("Running database migrations...")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		lgr.Error().Str("path", dir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", dir, err)
	}

	migrator := appMigrations.NewMigrator(pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, dir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// NewRelay returns the Redis relay when enabled, otherwise an in-process one
func NewRelay(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (pubsub.Relay, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, notifications are relayed in-process")
		return pubsub.NewLocalRelay(), nil
	}

	relay, err := pubsub.NewRedisRelay(ctx, cfg.Redis.URL, cfg.Redis.Channel, logger.Component("pubsub"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	lgr.Info().Str("channel", cfg.Redis.Channel).Msg("Notifications are relayed through Redis")
	return relay, nil
}

// BuildDependencies initializes repositories, services, controllers and background workers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Database: database, Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database.Pool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	relay, err := NewRelay(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	deps.Relay = relay

	deps.Hub = websocket.NewHub(logger.Component("websocket"))
	deps.Hub.AddDeliveryListener(func(_ uuid.UUID, reached int) {
		metrics.WebSocketDeliveries.WithLabelValues(strconv.FormatBool(reached > 0)).Inc()
	})
	deps.RelayConsumer = websocket.NewRelayConsumer(relay, deps.Hub, logger.Component("relay-consumer"))

	mailer := email.NewEmailService(email.SendGridConfig{
		APIKey:    cfg.Email.SendGridAPIKey,
		FromName:  cfg.Email.FromName,
		FromEmail: cfg.Email.FromEmail,
	}, logger.Component("email"))
	deps.Dispatcher = notify.NewDispatcher(relay, mailer, deps.Repos.UserRepository, logger.Component("notify"))

	// Initialize services
	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		database,
		deps.JWTService,
		logger.Component("auth"),
	)
	deps.UserService = appServices.NewUserService(deps.Repos.UserRepository, logger.Component("users"))
	deps.AssignmentService = appServices.NewAssignmentService(
		deps.Repos.AssignmentRepository,
		deps.Repos.SubmissionRepository,
		deps.Repos.UserRepository,
		deps.Repos.NotificationRepository,
		database,
		deps.Dispatcher,
		time.Now,
		logger.Component("assignments"),
	)
	deps.SubmissionService = appServices.NewSubmissionService(
		deps.Repos.SubmissionRepository,
		deps.Repos.AssignmentRepository,
		deps.Repos.UserRepository,
		deps.Repos.NotificationRepository,
		database,
		deps.Dispatcher,
		time.Now,
		logger.Component("submissions"),
	)
	deps.NotificationService = appServices.NewNotificationService(
		deps.Repos.NotificationRepository,
		database,
		deps.Dispatcher,
		time.Now,
		logger.Component("notifications"),
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	imagesURL := strings.TrimRight(cfg.Storage.BaseURL, "/") + cfg.Storage.PublicPath
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Storage.UploadDir, imagesURL, filestorage.ImageTypes, logger.Component("filestorage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		User:         appControllers.NewUserController(deps.UserService, lgr),
		Assignment:   appControllers.NewAssignmentController(deps.AssignmentService, lgr),
		Submission:   appControllers.NewSubmissionController(deps.SubmissionService, lgr),
		Notification: appControllers.NewNotificationController(deps.NotificationService, lgr),
		Image:        appControllers.NewImageController(deps.FileStorage, cfg.Storage.MaxUploadSize, lgr),
		Health:       appControllers.NewHealthController(database),
		WebSocket:    websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, logger.Component("websocket")),
	}

	if cfg.Scheduler.Enabled {
		deps.Scheduler, err = BuildScheduler(cfg, deps)
		if err != nil {
			return nil, err
		}
	}

	return deps, nil
}

// BuildScheduler registers the reminder and token cleanup jobs
func BuildScheduler(cfg *config.Config, deps *Dependencies) (*scheduler.Scheduler, error) {
	s := scheduler.New(deps.Logger)
	window := helpers.ParseDuration(cfg.Scheduler.ReminderWindow, appServices.DefaultReminderWindow)
	if err := s.AddReminderJob(cfg.Scheduler.ReminderSpec, window, deps.NotificationService); err != nil {
		return nil, err
	}
	if cfg.Scheduler.CleanupSpec != "" {
		if err := s.AddTokenCleanupJob(cfg.Scheduler.CleanupSpec, deps.Repos.TokenRepository); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// StartBackground runs the websocket hub, the relay consumer and the scheduler until ctx is done.
func (d *Dependencies) StartBackground(ctx context.Context) {
	go d.Hub.Run(ctx.Done())
	d.RelayConsumer.Start(ctx)
	if d.Scheduler != nil {
		d.Scheduler.Start()
	}
}

// Close stops the scheduler, waits for pending e-mails and releases the relay.
// The database is closed by the owner of the pool.
func (d *Dependencies) Close(ctx context.Context) {
	if d.Scheduler != nil {
		d.Scheduler.Stop(ctx)
	}
	if d.Dispatcher != nil {
		d.Dispatcher.Wait()
	}
	if d.Relay != nil {
		if err := d.Relay.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close notification relay")
		}
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(),
		appMiddleware.RequestLogger(logger.Component("http")),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
	)
	if cfg.Metrics.Enabled {
		router.Use(appMiddleware.Metrics())
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/ping", deps.Controllers.Health.Ping)
	router.Static(cfg.Storage.PublicPath, cfg.Storage.UploadDir)

	return router
}
