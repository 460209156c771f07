package main

import (
	"context"
	"fmt"

	mongorepo "github.com/ogurasousui/staffing-api/internal/adapters/repository/mongo"
	"github.com/ogurasousui/staffing-api/internal/adapters/repository/postgres"
	"github.com/ogurasousui/staffing-api/internal/core/company"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/ogurasousui/staffing-api/internal/core/user"
	"github.com/ogurasousui/staffing-api/internal/platform/config"
	mongodb "github.com/ogurasousui/staffing-api/internal/platform/db/mongo"
	pg "github.com/ogurasousui/staffing-api/internal/platform/db/postgres"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
)

type transactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

// storage は選択されたドライバーのリポジトリ群です。
type storage struct {
	employees employee.Repository
	companies company.Repository
	users     user.Repository
	tx        transactionManager
	health    func(context.Context) error
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config, lg *logger.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.Mongo.Database)
		created, err := mongodb.EnsureIndexes(ctx, db)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		lg.Info("mongo indexes ensured", "indexes", created)

		return &storage{
			employees: mongorepo.NewEmployeeRepository(db),
			companies: mongorepo.NewCompanyRepository(db),
			users:     mongorepo.NewUserRepository(db),
			tx:        mongodb.NewTransactionManager(client, cfg.Mongo.Transactions),
			health:    mongodb.HealthCheck(client),
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil
	default:
		pool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("initialize database pool: %w", err)
		}

		return &storage{
			employees: postgres.NewEmployeeRepository(pool),
			companies: postgres.NewCompanyRepository(pool),
			users:     postgres.NewUserRepository(pool),
			tx:        pg.NewTransactionManager(pool),
			health:    pg.HealthCheck(pool),
			close:     pool.Close,
		}, nil
	}
}
