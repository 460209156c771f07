package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/ogurasousui/staffing-api/internal/platform/config"
	mongodb "github.com/ogurasousui/staffing-api/internal/platform/db/mongo"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "assets/migrations", "directory containing migration files")
	)
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	if cfg.Storage.Driver == config.DriverMongo {
		err = runMongo(action, cfg.Mongo, lg)
	} else {
		err = runMigration(action, *migrationsDir, cfg.Database.DSN(), lg)
	}
	if err != nil {
		lg.Error("migration failed", "action", action, "driver", cfg.Storage.Driver, "error", err)
		lg.Sync()
		os.Exit(1)
	}

	lg.Info("migration completed", "action", action, "driver", cfg.Storage.Driver)
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func runMigration(action, dir, dsn string, lg *logger.Logger) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				lg.Info("no migration applied")
				return nil
			}
			return err
		}
		lg.Info("migration version", "version", version, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

// MongoDB はスキーマを持たないため、up / indexes はインデックス作成のみを行います。
func runMongo(action string, cfg config.MongoConfig, lg *logger.Logger) error {
	switch action {
	case "up", "indexes":
	default:
		return fmt.Errorf("unsupported action %q for mongo", action)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongodb.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	created, err := mongodb.EnsureIndexes(ctx, client.Database(cfg.Database))
	if err != nil {
		return err
	}
	lg.Info("mongo indexes ensured", "indexes", created)
	return nil
}
