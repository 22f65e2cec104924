package app

import (
	"database/sql"

	"go-conge/internal/auth"
	"go-conge/internal/config"
	"go-conge/internal/leave"
	"go-conge/internal/messaging/kafka"
	"go-conge/internal/middleware"
	"go-conge/internal/notification"
	"go-conge/internal/rbac"
	"go-conge/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	userRepo := user.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	notificationRepo := notification.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	rbacService, err := rbac.NewDefaultService(logger)
	if err != nil {
		return err
	}

	// --- Services ---
	authService := auth.NewService(userRepo, auth.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}, logger)
	userService := user.NewService(userRepo)
	notificationService := notification.NewService(notificationRepo, logger)
	leaveService := leave.NewService(
		db,
		leaveRepo,
		userService,
		rbacService,
		newLeaveNotifier(cfg.Kafka, outboxRepo, notificationService, logger),
		rdb,
		leave.Config{
			AnnualCap:                cfg.Leave.AnnualCap,
			EnforceTypeRulesOnUpdate: cfg.Leave.EnforceTypeRulesOnUpdate,
			BalanceCacheTTL:          cfg.Leave.BalanceCacheTTL,
		},
		logger,
	)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Secure:     cfg.Auth.SecureCookies,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	userHandler := user.NewHandler(userService, logger)
	leaveHandler := leave.NewHandler(leaveService, logger)
	notificationHandler := notification.NewHandler(notificationService, logger)
	rbacHandler := rbac.NewHandler(rbacService)

	authMiddleware := middleware.AuthMiddleware(cfg.Auth.JWTSecret)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler, authMiddleware)
		user.RegisterRoutes(api, userHandler, authMiddleware, rbacService)
		leave.RegisterRoutes(api, leaveHandler, authMiddleware, rbacService, rdb)
		notification.RegisterRoutes(api, notificationHandler, authMiddleware, rbacService)
		rbac.RegisterRoutes(api, rbacHandler, authMiddleware)
	}

	return nil
}

// newLeaveNotifier queues status changes on the outbox when a broker is configured,
// otherwise the inbox entry is written in-process.
func newLeaveNotifier(
	cfg config.KafkaConfig,
	outboxRepo kafka.OutboxRepository,
	notificationService notification.Service,
	logger *zap.Logger,
) leave.Notifier {
	if cfg.Broker != "" {
		logger.Info("leave notifications go through the outbox", zap.String("broker", cfg.Broker))
		return notification.NewOutboxNotifier(outboxRepo, logger)
	}
	logger.Info("no kafka broker configured, leave notifications are stored in-process")
	return notification.NewStoreNotifier(notificationService)
}
