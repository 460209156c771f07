package company

import "context"

// Repository は会社集計の永続化を行うインターフェースです。
// 加算・減算はいずれも 1 文の原子的な更新として実装する必要があります。
type Repository interface {
	FindByName(ctx context.Context, name string) (*Company, error)
	// Create は member のみを含む会社を作成します。同名の会社があれば ErrCompanyAlreadyExists を返します。
	Create(ctx context.Context, name string, member Member) (*Company, error)
	// AddMember は member がロスターに無い場合に限り予算と人数を加算します。加算した場合に true を返します。
	AddMember(ctx context.Context, name string, member Member) (bool, error)
	// RemoveMember は member がロスターにある場合に限り予算と人数を減算します。減算した場合に true を返します。
	RemoveMember(ctx context.Context, name string, member Member) (bool, error)
	// DeleteIfEmpty は人数が 0 以下の会社を削除し、削除した場合に true を返します。
	DeleteIfEmpty(ctx context.Context, name string) (bool, error)
}
