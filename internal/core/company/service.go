package company

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/shopspring/decimal"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// EmployeeDirectory はロスターのキーを社員レコードに解決します。
type EmployeeDirectory interface {
	FindEmployeesByKeys(ctx context.Context, keys []string) ([]*employee.Employee, error)
}

// BudgetCache は給与予算の読み取りキャッシュです。
// 実装は自身の障害をログに残し、呼び出し側にはキャッシュミスとして振る舞います。
//
// Invalidate は会社ごとの世代を進めます。GetBudget はミス時にその時点の世代を返し、
// SetBudget は世代が変わっていない場合に限り値を保存します。世代が負の場合は保存しません。
type BudgetCache interface {
	GetBudget(ctx context.Context, companyName string) (budget decimal.Decimal, generation int64, ok bool)
	SetBudget(ctx context.Context, companyName string, generation int64, budget decimal.Decimal)
	Invalidate(ctx context.Context, companyName string)
}

type noopBudgetCache struct{}

func (noopBudgetCache) GetBudget(context.Context, string) (decimal.Decimal, int64, bool) {
	return decimal.Zero, -1, false
}

func (noopBudgetCache) SetBudget(context.Context, string, int64, decimal.Decimal) {}

func (noopBudgetCache) Invalidate(context.Context, string) {}

// Service は会社集計の維持と参照をまとめます。
type Service struct {
	repo      Repository
	directory EmployeeDirectory
	cache     BudgetCache
	tx        TransactionManager
}

// UseCase は会社ユースケースの公開インターフェースです。
type UseCase interface {
	OnEmployeeAdded(ctx context.Context, companyName string, member Member) error
	OnEmployeeRemoved(ctx context.Context, companyName string, member Member) error
	GetCompany(ctx context.Context, companyName string) (*View, error)
	GetSalaryBudget(ctx context.Context, companyName string) (decimal.Decimal, error)
	InvalidateSalaryBudget(ctx context.Context, companyName string)
}

// NewService は Service を生成します。cache と tx は nil の場合に何もしない実装を使います。
func NewService(repo Repository, directory EmployeeDirectory, cache BudgetCache, tx TransactionManager) *Service {
	if cache == nil {
		cache = noopBudgetCache{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, directory: directory, cache: cache, tx: tx}
}

// OnEmployeeAdded は社員の追加を会社集計に反映します。
// 会社が無ければ作成し、あればロスターに無い場合に限り予算と人数を加算します。
func (s *Service) OnEmployeeAdded(ctx context.Context, companyName string, member Member) error {
	name, err := normalizeName(companyName)
	if err != nil {
		return err
	}
	if err := validateMember(member); err != nil {
		return err
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByName(txCtx, name)
		switch {
		case errors.Is(err, ErrCompanyNotFound):
			_, err := s.repo.Create(txCtx, name, member)
			if err == nil {
				return nil
			}
			// 作成競合に負けた場合は加算へ切り替えます。
			if !errors.Is(err, ErrCompanyAlreadyExists) {
				return err
			}
		case err != nil:
			return err
		case existing.HasMember(member.Key):
			return nil
		}

		_, err = s.repo.AddMember(txCtx, name, member)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, name)
	return nil
}

// OnEmployeeRemoved は社員の削除を会社集計に反映し、空になった会社を削除します。
func (s *Service) OnEmployeeRemoved(ctx context.Context, companyName string, member Member) error {
	name, err := normalizeName(companyName)
	if err != nil {
		return err
	}
	if err := validateMember(member); err != nil {
		return err
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.RemoveMember(txCtx, name, member); err != nil {
			return err
		}
		_, err := s.repo.DeleteIfEmpty(txCtx, name)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, name)
	return nil
}

// GetCompany はロスターを社員レコードに解決した会社を返します。
func (s *Service) GetCompany(ctx context.Context, companyName string) (*View, error) {
	name, err := normalizeName(companyName)
	if err != nil {
		return nil, err
	}

	var view *View
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		company, err := s.repo.FindByName(txCtx, name)
		if err != nil {
			return err
		}

		employees := []*employee.Employee{}
		if len(company.Roster) > 0 && s.directory != nil {
			employees, err = s.directory.FindEmployeesByKeys(txCtx, company.Roster)
			if err != nil {
				return err
			}
		}
		sort.Slice(employees, func(i, j int) bool { return employees[i].ID < employees[j].ID })

		view = &View{Company: *company, Employees: employees}
		return nil
	}); err != nil {
		return nil, err
	}

	return view, nil
}

// GetSalaryBudget は会社の給与予算を返します。
func (s *Service) GetSalaryBudget(ctx context.Context, companyName string) (decimal.Decimal, error) {
	name, err := normalizeName(companyName)
	if err != nil {
		return decimal.Zero, err
	}

	budget, generation, ok := s.cache.GetBudget(ctx, name)
	if ok {
		return budget, nil
	}

	company, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return decimal.Zero, err
	}

	// 読み取り中に無効化が入っていれば世代が進んでいるため、古い値は保存されません。
	s.cache.SetBudget(ctx, name, generation, company.SalaryBudget)
	return company.SalaryBudget, nil
}

// InvalidateSalaryBudget は給与予算のキャッシュを破棄します。
// トランザクション確定後に呼び出すことで、確定前の値が再キャッシュされた場合も取り除きます。
func (s *Service) InvalidateSalaryBudget(ctx context.Context, companyName string) {
	name, err := normalizeName(companyName)
	if err != nil {
		return
	}
	s.cache.Invalidate(ctx, name)
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidCompanyName
	}
	return trimmed, nil
}

func validateMember(member Member) error {
	if strings.TrimSpace(member.Key) == "" || member.Salary.IsNegative() {
		return ErrInvalidMember
	}
	return nil
}
