package staffing

import (
	"context"
	"errors"

	"github.com/ogurasousui/staffing-api/internal/core/company"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 操作名と結果のラベルです。
const (
	OperationAdd    = "add_employee"
	OperationRemove = "remove_employee"

	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
	OutcomeCompensated = "compensated"

	CompensationDeleted = "deleted"
	CompensationNoop    = "noop"
	CompensationFailed  = "failed"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Recorder は操作結果を計測します。
type Recorder interface {
	OperationCompleted(operation, outcome string)
	CompensationCompleted(result string)
}

type noopRecorder struct{}

func (noopRecorder) OperationCompleted(string, string) {}

func (noopRecorder) CompensationCompleted(string) {}

// EmployeeRegistry は社員台帳のうち本サービスが利用する操作です。
type EmployeeRegistry interface {
	CreateEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error)
	FindEmployeeByExternalID(ctx context.Context, id int64) (*employee.Employee, error)
	DeleteEmployeeByExternalID(ctx context.Context, id int64) (bool, error)
}

// AggregateMaintainer は会社集計のうち本サービスが利用する操作です。
type AggregateMaintainer interface {
	OnEmployeeAdded(ctx context.Context, companyName string, member company.Member) error
	OnEmployeeRemoved(ctx context.Context, companyName string, member company.Member) error
	InvalidateSalaryBudget(ctx context.Context, companyName string)
}

// Service は社員レコードと会社集計を揃えて更新します。
type Service struct {
	employees EmployeeRegistry
	companies AggregateMaintainer
	tx        TransactionManager
	log       *logger.Logger
	metrics   Recorder
	tracer    trace.Tracer
}

// UseCase は社員の追加・削除ユースケースの公開インターフェースです。
type UseCase interface {
	AddEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error)
	RemoveEmployee(ctx context.Context, id int64) (*employee.Employee, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithTransactionManager は社員と会社集計の更新を 1 トランザクションにまとめます。
func WithTransactionManager(tx TransactionManager) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// NewService は Service を生成します。
func NewService(employees EmployeeRegistry, companies AggregateMaintainer, opts ...Option) *Service {
	s := &Service{
		employees: employees,
		companies: companies,
		tx:        noopTransactionManager{},
		log:       logger.NewNop(),
		metrics:   noopRecorder{},
		tracer:    otel.Tracer("github.com/ogurasousui/staffing-api/internal/core/staffing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddEmployee は社員を登録し、所属会社の集計に反映します。
// 集計の更新に失敗した場合は登録した社員を削除し、*ConsistencyError を返します。
func (s *Service) AddEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error) {
	ctx, span := s.tracer.Start(ctx, "staffing.AddEmployee", trace.WithAttributes(attribute.Int64("employee.id", in.ID)))
	defer span.End()

	var (
		created      *employee.Employee
		aggregateErr error
	)
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		// 再試行時に前回の結果を持ち越さないよう毎回初期化します。
		created, aggregateErr = nil, nil

		e, err := s.employees.CreateEmployee(txCtx, in)
		if err != nil {
			return err
		}
		created = e

		if err := s.companies.OnEmployeeAdded(txCtx, e.CompanyName, company.Member{Key: e.Key, Salary: e.Salary}); err != nil {
			aggregateErr = err
			return err
		}
		return nil
	})

	if err != nil && created == nil {
		outcome := classify(err)
		s.metrics.OperationCompleted(OperationAdd, outcome)
		if outcome == OutcomeFailed {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create employee")
			s.log.Error("add employee failed", "employee_id", in.ID, "error", err)
		}
		return nil, err
	}

	if err != nil {
		// トランザクション確定に失敗した場合も集計の更新失敗として扱います。
		if aggregateErr == nil {
			aggregateErr = err
		}
		cErr := s.compensate(ctx, created)
		cerr := &ConsistencyError{EmployeeID: created.ID, Err: aggregateErr, CompensationErr: cErr}

		span.RecordError(cerr)
		span.SetStatus(codes.Error, "company aggregate update")
		if cErr != nil {
			s.metrics.OperationCompleted(OperationAdd, OutcomeFailed)
			s.log.Error("add employee left an orphan record",
				"employee_id", created.ID, "company", created.CompanyName, "error", aggregateErr, "compensation_error", cErr)
		} else {
			s.metrics.OperationCompleted(OperationAdd, OutcomeCompensated)
			s.log.Warn("add employee compensated",
				"employee_id", created.ID, "company", created.CompanyName, "error", aggregateErr)
		}
		return nil, cerr
	}

	s.companies.InvalidateSalaryBudget(ctx, created.CompanyName)
	s.metrics.OperationCompleted(OperationAdd, OutcomeSuccess)
	s.log.Info("employee added", "employee_id", created.ID, "company", created.CompanyName)
	return created, nil
}

// RemoveEmployee は社員を削除し、所属会社の集計から差し引きます。
// 会社が空になった場合は会社も削除します。
func (s *Service) RemoveEmployee(ctx context.Context, id int64) (*employee.Employee, error) {
	ctx, span := s.tracer.Start(ctx, "staffing.RemoveEmployee", trace.WithAttributes(attribute.Int64("employee.id", id)))
	defer span.End()

	var removed *employee.Employee
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		e, err := s.employees.FindEmployeeByExternalID(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.companies.OnEmployeeRemoved(txCtx, e.CompanyName, company.Member{Key: e.Key, Salary: e.Salary}); err != nil {
			return err
		}

		if _, err := s.employees.DeleteEmployeeByExternalID(txCtx, id); err != nil {
			return err
		}
		removed = e
		return nil
	})
	if err != nil {
		outcome := classify(err)
		s.metrics.OperationCompleted(OperationRemove, outcome)
		if outcome == OutcomeFailed {
			span.RecordError(err)
			span.SetStatus(codes.Error, "remove employee")
			s.log.Error("remove employee failed", "employee_id", id, "error", err)
		}
		return nil, err
	}

	s.companies.InvalidateSalaryBudget(ctx, removed.CompanyName)
	s.metrics.OperationCompleted(OperationRemove, OutcomeSuccess)
	s.log.Info("employee removed", "employee_id", removed.ID, "company", removed.CompanyName)
	return removed, nil
}

// compensate は集計に反映できなかった社員を削除します。
// トランザクションが巻き戻された後は対象が存在しないため何もしません。
// 同じ外部 ID で別の社員が登録されている場合は削除しません。
func (s *Service) compensate(ctx context.Context, created *employee.Employee) error {
	ctx = context.WithoutCancel(ctx)

	existing, err := s.employees.FindEmployeeByExternalID(ctx, created.ID)
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		s.metrics.CompensationCompleted(CompensationNoop)
		return nil
	case err != nil:
		s.metrics.CompensationCompleted(CompensationFailed)
		return err
	case existing.Key != created.Key:
		s.metrics.CompensationCompleted(CompensationNoop)
		return nil
	}

	if _, err := s.employees.DeleteEmployeeByExternalID(ctx, created.ID); err != nil {
		s.metrics.CompensationCompleted(CompensationFailed)
		return err
	}
	s.metrics.CompensationCompleted(CompensationDeleted)
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, employee.ErrInvalidEmployee),
		errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, employee.ErrEmployeeAlreadyExists):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
