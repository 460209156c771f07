package employee

import "context"

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	FindByExternalID(ctx context.Context, id int64) (*Employee, error)
	FindByKeys(ctx context.Context, keys []string) ([]*Employee, error)
	// DeleteByExternalID は該当レコードを削除し、削除した場合に true を返します。存在しない場合はエラーにしません。
	DeleteByExternalID(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]*Employee, error)
}
