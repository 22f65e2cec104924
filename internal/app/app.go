package app

import (
	"fmt"
	"net/http"

	"go-conge/internal/config"
	"go-conge/internal/middleware"
	"go-conge/internal/shared/connection"
	"go-conge/internal/shared/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BuildApp connects the stores, registers every module on router and returns a
// cleanup func that closes the connections.
func BuildApp(router *gin.Engine, cfg *config.Config, logger *zap.Logger) (func(), error) {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(sqlDB, logger.Named("migrate")); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	rdb, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Database.MaxRetries, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	router.Use(
		middleware.RequestID(),
		middleware.ContextLogger(logger),
		middleware.AccessLog(logger),
		middleware.CORS(cfg.Server.AllowOrigins),
		middleware.RateLimitByIP(20, 40),
	)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if err := registerModules(router, cfg, sqlDB, gormDB, rdb, logger); err != nil {
		_ = rdb.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis failed", zap.Error(err))
		}
		if err := sqlDB.Close(); err != nil {
			logger.Warn("close database failed", zap.Error(err))
		}
	}
	return cleanup, nil
}
