package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/staffing-api/internal/core/company"
	pgdb "github.com/ogurasousui/staffing-api/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const companyMembersCompanyFK = "company_members_company_fk"

// CompanyRepository は PostgreSQL を利用した会社集計永続化の実装です。
// ロスターは company_members テーブルで管理し、集計値の更新はロスターの変更と同じ 1 文で行います。
type CompanyRepository struct {
	pool pgdb.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(pool pgdb.Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// FindByName は会社名で会社を取得します。
func (r *CompanyRepository) FindByName(ctx context.Context, name string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT c.name, c.salary_budget::text, c.quantity,
               COALESCE(array_agg(m.employee_key::text ORDER BY m.added_at, m.employee_key)
                        FILTER (WHERE m.employee_key IS NOT NULL), '{}')
          FROM companies c
          LEFT JOIN company_members m ON m.company_name = c.name
         WHERE c.name = $1
         GROUP BY c.name
    `, name)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return found, nil
}

// Create は member のみを含む会社を作成します。
func (r *CompanyRepository) Create(ctx context.Context, name string, member company.Member) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH created AS (
            INSERT INTO companies (name, salary_budget, quantity)
            VALUES ($1, $2::numeric, 1)
            ON CONFLICT (name) DO NOTHING
            RETURNING name, salary_budget, quantity
        ), member AS (
            INSERT INTO company_members (company_name, employee_key)
            SELECT name, $3::uuid FROM created
            RETURNING employee_key
        )
        SELECT c.name, c.salary_budget::text, c.quantity, ARRAY(SELECT employee_key::text FROM member)
          FROM created c
    `, name, member.Salary.String(), member.Key)

	created, err := scanCompany(row)
	if errors.Is(err, company.ErrCompanyNotFound) {
		return nil, company.ErrCompanyAlreadyExists
	}
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return created, nil
}

// AddMember は member がロスターに無い場合に限り予算と人数を加算します。
func (r *CompanyRepository) AddMember(ctx context.Context, name string, member company.Member) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        WITH member AS (
            INSERT INTO company_members (company_name, employee_key)
            VALUES ($1, $2::uuid)
            ON CONFLICT DO NOTHING
            RETURNING company_name
        )
        UPDATE companies c
           SET salary_budget = c.salary_budget + $3::numeric,
               quantity = c.quantity + 1,
               updated_at = now()
          FROM member m
         WHERE c.name = m.company_name
    `, name, member.Key, member.Salary.String())
	if err != nil {
		return false, translateCompanyPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveMember は member がロスターにある場合に限り予算と人数を減算します。
func (r *CompanyRepository) RemoveMember(ctx context.Context, name string, member company.Member) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        WITH member AS (
            DELETE FROM company_members
             WHERE company_name = $1
               AND employee_key = $2::uuid
            RETURNING company_name
        )
        UPDATE companies c
           SET salary_budget = c.salary_budget - $3::numeric,
               quantity = c.quantity - 1,
               updated_at = now()
          FROM member m
         WHERE c.name = m.company_name
    `, name, member.Key, member.Salary.String())
	if err != nil {
		return false, translateCompanyPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteIfEmpty は人数が 0 以下の会社を削除します。
func (r *CompanyRepository) DeleteIfEmpty(ctx context.Context, name string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM companies WHERE name = $1 AND quantity <= 0`, name)
	if err != nil {
		return false, translateCompanyPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		c      company.Company
		budget string
		roster []string
	)

	if err := row.Scan(&c.Name, &budget, &c.Quantity, &roster); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}

	amount, err := decimal.NewFromString(budget)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse salary budget %q: %w", budget, err)
	}
	c.SalaryBudget = amount
	c.Roster = roster
	if c.Roster == nil {
		c.Roster = []string{}
	}

	return &c, nil
}

func translateCompanyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return company.ErrCompanyAlreadyExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == companyMembersCompanyFK {
				return company.ErrCompanyNotFound
			}
			return fmt.Errorf("%w: %s", company.ErrInvalidMember, pgErr.ConstraintName)
		case checkViolationCode:
			return fmt.Errorf("postgres: company aggregate constraint %s: %w", pgErr.ConstraintName, err)
		}
	}
	return err
}
