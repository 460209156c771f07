package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KeyGenerator は社員の内部キーを払い出します。
type KeyGenerator interface {
	NewKey() string
}

type uuidKeyGenerator struct{}

func (uuidKeyGenerator) NewKey() string {
	return uuid.NewString()
}

// Service は社員台帳に関するユースケースをまとめます。
type Service struct {
	repo Repository
	keys KeyGenerator
}

// UseCase は社員台帳ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	FindEmployeeByExternalID(ctx context.Context, id int64) (*Employee, error)
	FindEmployeesByKeys(ctx context.Context, keys []string) ([]*Employee, error)
	DeleteEmployeeByExternalID(ctx context.Context, id int64) (bool, error)
	ListEmployees(ctx context.Context) (map[int64]*Employee, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, keys KeyGenerator) *Service {
	if keys == nil {
		keys = uuidKeyGenerator{}
	}
	return &Service{repo: repo, keys: keys}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	ID           int64           `validate:"gt=0"`
	EmailAddress string          `validate:"required,email"`
	CompanyName  string          `validate:"required"`
	Gender       string          `validate:"required"`
	Name         string          `validate:"required"`
	Salary       decimal.Decimal
	Title        string          `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// salaryScale は給与として保持する小数桁数です。
const salaryScale = 2

var fieldErrors = map[string]error{
	"ID":           ErrInvalidID,
	"EmailAddress": ErrInvalidEmail,
	"CompanyName":  ErrInvalidCompanyName,
	"Gender":       ErrInvalidGender,
	"Name":         ErrInvalidName,
	"Title":        ErrInvalidTitle,
}

// Validate は入力を正規化したうえで検証し、永続化可能な値を返します。
func (in CreateEmployeeInput) Validate() (CreateEmployeeInput, error) {
	normalized := CreateEmployeeInput{
		ID:           in.ID,
		EmailAddress: strings.ToLower(strings.TrimSpace(in.EmailAddress)),
		CompanyName:  strings.TrimSpace(in.CompanyName),
		Gender:       strings.TrimSpace(in.Gender),
		Name:         strings.TrimSpace(in.Name),
		Salary:       in.Salary,
		Title:        strings.TrimSpace(in.Title),
	}

	if err := validate.Struct(normalized); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if sentinel, ok := fieldErrors[fe.StructField()]; ok {
				return CreateEmployeeInput{}, fmt.Errorf("%w (%s)", sentinel, fe.Tag())
			}
		}
		return CreateEmployeeInput{}, fmt.Errorf("%w: %v", ErrInvalidEmployee, err)
	}

	salary, err := validateSalary(in.Salary)
	if err != nil {
		return CreateEmployeeInput{}, err
	}
	normalized.Salary = salary

	return normalized, nil
}

// validateSalary は給与が範囲内かつ銭単位までであることを確認し、小数 2 桁に揃えた値を返します。
// 比較は decimal のまま行い、浮動小数点への変換は挟みません。
func validateSalary(salary decimal.Decimal) (decimal.Decimal, error) {
	if salary.LessThan(MinSalary) || salary.GreaterThan(MaxSalary) {
		return decimal.Decimal{}, fmt.Errorf("%w (range)", ErrInvalidSalary)
	}
	scaled := salary.Round(salaryScale)
	if !scaled.Equal(salary) {
		return decimal.Decimal{}, fmt.Errorf("%w (scale)", ErrInvalidSalary)
	}
	return scaled, nil
}

// CreateEmployee は入力を検証して社員を登録します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	valid, err := in.Validate()
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, &Employee{
		Key:          s.keys.NewKey(),
		ID:           valid.ID,
		EmailAddress: valid.EmailAddress,
		CompanyName:  valid.CompanyName,
		Gender:       valid.Gender,
		Name:         valid.Name,
		Salary:       valid.Salary,
		Title:        valid.Title,
	})
}

// FindEmployeeByExternalID は外部 ID で社員を取得します。
func (s *Service) FindEmployeeByExternalID(ctx context.Context, id int64) (*Employee, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return s.repo.FindByExternalID(ctx, id)
}

// FindEmployeesByKeys は内部キーの集合に対応する社員を取得します。存在しないキーは無視されます。
func (s *Service) FindEmployeesByKeys(ctx context.Context, keys []string) ([]*Employee, error) {
	if len(keys) == 0 {
		return []*Employee{}, nil
	}
	return s.repo.FindByKeys(ctx, keys)
}

// DeleteEmployeeByExternalID は外部 ID で社員を削除します。存在しない場合は false を返します。
func (s *Service) DeleteEmployeeByExternalID(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, ErrInvalidID
	}
	return s.repo.DeleteByExternalID(ctx, id)
}

// ListEmployees は全社員を外部 ID をキーとしたマップで返します。
func (s *Service) ListEmployees(ctx context.Context) (map[int64]*Employee, error) {
	employees, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[int64]*Employee, len(employees))
	for _, e := range employees {
		result[e.ID] = e
	}
	return result, nil
}
