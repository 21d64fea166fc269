package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleet-expense-server/internal/audit"
	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/bootstrap"
	"fleet-expense-server/internal/core/cache"
	"fleet-expense-server/internal/core/config"
	"fleet-expense-server/internal/core/database"
	"fleet-expense-server/internal/core/logger"
	"fleet-expense-server/internal/core/server"
	"fleet-expense-server/internal/core/token"
	"fleet-expense-server/internal/domain"
	"fleet-expense-server/internal/repo"
	httpez "fleet-expense-server/internal/transport/http/ez"
	"fleet-expense-server/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(domain.Models()...); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
	}

	cc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cc.Ping(ctx); err != nil {
			log.Fatal("redis ping", zap.Error(err))
		}
		cancel()
	}

	jwter := &token.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	users := repo.NewUserRepo(db)
	trail := repo.NewAuditRepo(db)
	recorder := audit.NewRecorder(trail, log)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	authz := auth.NewAuthorizer(users, jwter, cc,
		time.Duration(cfg.Auth.StoreTimeoutSec)*time.Second, log)
	boot := bootstrap.NewService(repo.NewWipeRepo(db), users, hasher, cfg.Auth.BaselinePassword, log)

	env := &httpez.Env{DB: db, Authz: authz, Audit: recorder, Log: log}
	r := router.NewAdminEngine(env, boot, cc, hasher)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	log.Info("fleet admin starting", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("fleet admin start FAILED", zap.Error(err))
		}
	}()
	log.Info("fleet admin started SUCCESS")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("fleet admin stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
