package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	pgdb "github.com/ogurasousui/staffing-api/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

// ErrEmployeeOnRoster は会社のロスターに残っている社員を削除しようとした場合に返却されます。
var ErrEmployeeOnRoster = errors.New("postgres: employee is still on a company roster")

const employeeColumns = `employee_key::text, external_id, email_address, company_name, gender, name, salary::text, title`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (employee_key, external_id, email_address, company_name, gender, name, salary, title)
        VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::numeric, $8)
        RETURNING `+employeeColumns,
		e.Key,
		e.ID,
		e.EmailAddress,
		e.CompanyName,
		e.Gender,
		e.Name,
		e.Salary.String(),
		e.Title,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// FindByExternalID は外部 ID で社員を取得します。
func (r *EmployeeRepository) FindByExternalID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE external_id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByKeys は内部キーの集合に対応する社員を外部 ID 順に取得します。
func (r *EmployeeRepository) FindByKeys(ctx context.Context, keys []string) ([]*employee.Employee, error) {
	if len(keys) == 0 {
		return []*employee.Employee{}, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE employee_key = ANY($1::uuid[])
         ORDER BY external_id
    `, keys)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

// DeleteByExternalID は外部 ID で社員を削除します。存在しない場合は false を返します。
func (r *EmployeeRepository) DeleteByExternalID(ctx context.Context, id int64) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE external_id = $1`, id)
	if err != nil {
		return false, translateEmployeePgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// List は全社員を外部 ID 順に取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         ORDER BY external_id
    `)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

func collectEmployees(rows pgx.Rows) ([]*employee.Employee, error) {
	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e      employee.Employee
		salary string
	)

	if err := row.Scan(&e.Key, &e.ID, &e.EmailAddress, &e.CompanyName, &e.Gender, &e.Name, &salary, &e.Title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	amount, err := decimal.NewFromString(salary)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse salary %q: %w", salary, err)
	}
	e.Salary = amount

	return &e, nil
}

func translateEmployeePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return employee.ErrEmployeeAlreadyExists
		case checkViolationCode:
			return employee.ErrInvalidEmployee
		case foreignKeyViolationCode:
			return fmt.Errorf("%w: %s", ErrEmployeeOnRoster, pgErr.ConstraintName)
		}
	}
	return err
}
