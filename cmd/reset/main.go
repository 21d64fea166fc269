// Command reset wipes the database and provisions the baseline accounts
// from the command line, for fresh environments where no admin session
// exists yet to call the HTTP reset.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/bootstrap"
	"fleet-expense-server/internal/core/config"
	"fleet-expense-server/internal/core/database"
	"fleet-expense-server/internal/core/logger"
	"fleet-expense-server/internal/domain"
	"fleet-expense-server/internal/repo"
)

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	if !*yes && !confirm() {
		fmt.Println("aborted")
		return
	}

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
		log.Fatal("db open", zap.Error(err))
	}

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	users := repo.NewUserRepo(db)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	boot := bootstrap.NewService(repo.NewWipeRepo(db), users, hasher, cfg.Auth.BaselinePassword, log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	accounts, err := boot.Reset(ctx)
	if err != nil {
		log.Fatal("reset failed", zap.Error(err))
	}

	fmt.Println("reset complete, baseline accounts:")
	for _, a := range accounts {
		fmt.Printf("  %-8s %-10s %s\n", a.Username, a.Role, a.Email)
	}
	fmt.Println("initial password: the configured auth.baselinePassword")
}

func confirm() bool {
	fmt.Print("this ERASES all data and reseeds the baseline accounts. type 'reset' to continue: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line) == "reset"
}
