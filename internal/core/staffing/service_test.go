package staffing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ogurasousui/staffing-api/internal/core/company"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/shopspring/decimal"
)

type memEmployees struct {
	byID      map[int64]*employee.Employee
	deleteErr error
	creates   int
}

func newMemEmployees() *memEmployees {
	return &memEmployees{byID: make(map[int64]*employee.Employee)}
}

func (r *memEmployees) Create(_ context.Context, e *employee.Employee) (*employee.Employee, error) {
	r.creates++
	if _, ok := r.byID[e.ID]; ok {
		return nil, employee.ErrEmployeeAlreadyExists
	}
	clone := *e
	r.byID[e.ID] = &clone
	out := clone
	return &out, nil
}

func (r *memEmployees) FindByExternalID(_ context.Context, id int64) (*employee.Employee, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *memEmployees) FindByKeys(_ context.Context, keys []string) ([]*employee.Employee, error) {
	var out []*employee.Employee
	for _, k := range keys {
		for _, e := range r.byID {
			if e.Key == k {
				clone := *e
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (r *memEmployees) DeleteByExternalID(_ context.Context, id int64) (bool, error) {
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *memEmployees) List(_ context.Context) ([]*employee.Employee, error) {
	out := make([]*employee.Employee, 0, len(r.byID))
	for _, e := range r.byID {
		clone := *e
		out = append(out, &clone)
	}
	return out, nil
}

type memCompanies struct {
	byName  map[string]*company.Company
	failAdd error
}

func newMemCompanies() *memCompanies {
	return &memCompanies{byName: make(map[string]*company.Company)}
}

func (r *memCompanies) FindByName(_ context.Context, name string) (*company.Company, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, company.ErrCompanyNotFound
	}
	clone := *c
	clone.Roster = append([]string(nil), c.Roster...)
	return &clone, nil
}

func (r *memCompanies) Create(_ context.Context, name string, m company.Member) (*company.Company, error) {
	if r.failAdd != nil {
		return nil, r.failAdd
	}
	if _, ok := r.byName[name]; ok {
		return nil, company.ErrCompanyAlreadyExists
	}
	r.byName[name] = &company.Company{Name: name, SalaryBudget: m.Salary, Quantity: 1, Roster: []string{m.Key}}
	return r.FindByName(context.Background(), name)
}

func (r *memCompanies) AddMember(_ context.Context, name string, m company.Member) (bool, error) {
	if r.failAdd != nil {
		return false, r.failAdd
	}
	c, ok := r.byName[name]
	if !ok {
		return false, company.ErrCompanyNotFound
	}
	if c.HasMember(m.Key) {
		return false, nil
	}
	c.SalaryBudget = c.SalaryBudget.Add(m.Salary)
	c.Quantity++
	c.Roster = append(c.Roster, m.Key)
	return true, nil
}

func (r *memCompanies) RemoveMember(_ context.Context, name string, m company.Member) (bool, error) {
	c, ok := r.byName[name]
	if !ok || !c.HasMember(m.Key) {
		return false, nil
	}
	c.SalaryBudget = c.SalaryBudget.Sub(m.Salary)
	c.Quantity--
	roster := make([]string, 0, len(c.Roster))
	for _, k := range c.Roster {
		if k != m.Key {
			roster = append(roster, k)
		}
	}
	c.Roster = roster
	return true, nil
}

func (r *memCompanies) DeleteIfEmpty(_ context.Context, name string) (bool, error) {
	c, ok := r.byName[name]
	if !ok || c.Quantity > 0 {
		return false, nil
	}
	delete(r.byName, name)
	return true, nil
}

type countingRecorder struct {
	operations    map[string]int
	compensations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{operations: map[string]int{}, compensations: map[string]int{}}
}

func (r *countingRecorder) OperationCompleted(operation, outcome string) {
	r.operations[operation+"/"+outcome]++
}

func (r *countingRecorder) CompensationCompleted(result string) {
	r.compensations[result]++
}

// rollbackTx は fn が失敗した場合に、その間に作成された社員を取り消す疑似トランザクションです。
type rollbackTx struct {
	employees *memEmployees
}

func (tx rollbackTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	before := make(map[int64]bool, len(tx.employees.byID))
	for id := range tx.employees.byID {
		before[id] = true
	}
	if err := fn(ctx); err != nil {
		for id := range tx.employees.byID {
			if !before[id] {
				delete(tx.employees.byID, id)
			}
		}
		return err
	}
	return nil
}

// retryingTx は最初の試行が失敗すると巻き戻して fn を再実行する疑似トランザクションです。
type retryingTx struct {
	employees       *memEmployees
	betweenAttempts func()
}

func (tx retryingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	inner := rollbackTx{employees: tx.employees}
	if err := inner.WithinReadWrite(ctx, fn); err == nil {
		return nil
	}
	if tx.betweenAttempts != nil {
		tx.betweenAttempts()
	}
	return inner.WithinReadWrite(ctx, fn)
}

type keySeq struct{ n int }

func (k *keySeq) NewKey() string {
	k.n++
	return fmt.Sprintf("key-%d", k.n)
}

type fixture struct {
	employees *memEmployees
	companies *memCompanies
	recorder  *countingRecorder
	svc       *Service
	company   *company.Service
}

func newFixture(opts ...Option) *fixture {
	employees := newMemEmployees()
	companies := newMemCompanies()
	employeeSvc := employee.NewService(employees, &keySeq{})
	companySvc := company.NewService(companies, employeeSvc, nil, nil)
	recorder := newCountingRecorder()

	opts = append([]Option{WithRecorder(recorder)}, opts...)
	return &fixture{
		employees: employees,
		companies: companies,
		recorder:  recorder,
		svc:       NewService(employeeSvc, companySvc, opts...),
		company:   companySvc,
	}
}

func input(id int64, salary int64, companyName string) employee.CreateEmployeeInput {
	return employee.CreateEmployeeInput{
		ID:           id,
		EmailAddress: fmt.Sprintf("e%d@example.com", id),
		CompanyName:  companyName,
		Gender:       "female",
		Name:         fmt.Sprintf("E%d", id),
		Salary:       decimal.NewFromInt(salary),
		Title:        "Engineer",
	}
}

// assertAggregate は会社集計がロスター上の社員と一致していることを確認します。
func assertAggregate(t *testing.T, f *fixture, name string) {
	t.Helper()

	c, ok := f.companies.byName[name]
	if !ok {
		return
	}
	sum := decimal.Zero
	for _, key := range c.Roster {
		found := false
		for _, e := range f.employees.byID {
			if e.Key == key {
				sum = sum.Add(e.Salary)
				found = true
			}
		}
		if !found {
			t.Fatalf("roster of %s references missing employee %s", name, key)
		}
	}
	if !sum.Equal(c.SalaryBudget) {
		t.Fatalf("salary budget of %s is %s, want %s", name, c.SalaryBudget, sum)
	}
	if c.Quantity != len(c.Roster) {
		t.Fatalf("quantity of %s is %d, roster has %d", name, c.Quantity, len(c.Roster))
	}
}

func TestService_AcmeScenario(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.AddEmployee(ctx, input(1, 10000, "Acme")); err != nil {
		t.Fatalf("add 1: %v", err)
	}
	budget, err := f.company.GetSalaryBudget(ctx, "Acme")
	if err != nil || !budget.Equal(decimal.NewFromInt(10000)) || f.companies.byName["Acme"].Quantity != 1 {
		t.Fatalf("after add 1: budget=%s err=%v", budget, err)
	}

	if _, err := f.svc.AddEmployee(ctx, input(2, 15000, "Acme")); err != nil {
		t.Fatalf("add 2: %v", err)
	}
	budget, _ = f.company.GetSalaryBudget(ctx, "Acme")
	if !budget.Equal(decimal.NewFromInt(25000)) || f.companies.byName["Acme"].Quantity != 2 {
		t.Fatalf("after add 2: budget=%s", budget)
	}

	if _, err := f.svc.RemoveEmployee(ctx, 1); err != nil {
		t.Fatalf("remove 1: %v", err)
	}
	budget, _ = f.company.GetSalaryBudget(ctx, "Acme")
	if !budget.Equal(decimal.NewFromInt(15000)) || f.companies.byName["Acme"].Quantity != 1 {
		t.Fatalf("after remove 1: budget=%s", budget)
	}

	if _, err := f.svc.RemoveEmployee(ctx, 2); err != nil {
		t.Fatalf("remove 2: %v", err)
	}
	if _, err := f.company.GetSalaryBudget(ctx, "Acme"); !errors.Is(err, company.ErrCompanyNotFound) {
		t.Fatalf("expected Acme to be gone, got %v", err)
	}
	if f.recorder.operations[OperationAdd+"/"+OutcomeSuccess] != 2 || f.recorder.operations[OperationRemove+"/"+OutcomeSuccess] != 2 {
		t.Fatalf("unexpected metrics: %v", f.recorder.operations)
	}
}

func TestService_AggregateCorrectnessOverSequence(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	steps := []struct {
		add     bool
		id      int64
		salary  int64
		company string
	}{
		{true, 1, 8000, "Acme"},
		{true, 2, 40000, "Acme"},
		{true, 3, 12345, "Globex"},
		{true, 4, 9999, "Acme"},
		{false, 2, 0, ""},
		{true, 5, 20000, "Globex"},
		{false, 3, 0, ""},
		{false, 1, 0, ""},
	}

	for i, step := range steps {
		var err error
		if step.add {
			_, err = f.svc.AddEmployee(ctx, input(step.id, step.salary, step.company))
		} else {
			_, err = f.svc.RemoveEmployee(ctx, step.id)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertAggregate(t, f, "Acme")
		assertAggregate(t, f, "Globex")
	}

	if c := f.companies.byName["Acme"]; c == nil || c.Quantity != 1 || !c.SalaryBudget.Equal(decimal.NewFromInt(9999)) {
		t.Fatalf("unexpected final Acme: %+v", c)
	}
	if c := f.companies.byName["Globex"]; c == nil || c.Quantity != 1 || !c.SalaryBudget.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("unexpected final Globex: %+v", c)
	}
}

func TestService_AddEmployee_LazyCreationOnce(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if _, err := f.svc.AddEmployee(ctx, input(id, 10000, "Initech")); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	if len(f.companies.byName) != 1 {
		t.Fatalf("expected exactly one company record, got %d", len(f.companies.byName))
	}
}

func TestService_AddEmployee_ValidationGate(t *testing.T) {
	t.Parallel()

	for _, salary := range []int64{7999, 40001} {
		f := newFixture()

		_, err := f.svc.AddEmployee(context.Background(), input(1, salary, "Acme"))
		if !errors.Is(err, employee.ErrInvalidSalary) {
			t.Fatalf("salary %d: expected ErrInvalidSalary, got %v", salary, err)
		}
		if f.employees.creates != 0 || len(f.employees.byID) != 0 || len(f.companies.byName) != 0 {
			t.Fatalf("salary %d: expected no side effects", salary)
		}
		if f.recorder.operations[OperationAdd+"/"+OutcomeRejected] != 1 {
			t.Fatalf("salary %d: expected rejected outcome, got %v", salary, f.recorder.operations)
		}
	}
}

func TestService_AddEmployee_DuplicateIDRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.AddEmployee(ctx, input(1, 10000, "Acme")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.svc.AddEmployee(ctx, input(1, 20000, "Acme")); !errors.Is(err, employee.ErrEmployeeAlreadyExists) {
		t.Fatalf("expected ErrEmployeeAlreadyExists, got %v", err)
	}
	assertAggregate(t, f, "Acme")
	if !f.companies.byName["Acme"].SalaryBudget.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("duplicate must not touch the aggregate")
	}
}

func TestService_AddEmployee_CompensatesOnAggregateFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.companies.failAdd = errors.New("aggregate write failed")
	ctx := context.Background()

	_, err := f.svc.AddEmployee(ctx, input(1, 10000, "Acme"))

	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if !errors.Is(err, ErrConsistency) || !errors.Is(err, f.companies.failAdd) {
		t.Fatalf("expected error chain to include ErrConsistency and the aggregate failure, got %v", err)
	}
	if !cerr.Compensated() {
		t.Fatalf("expected compensation to succeed, got %v", cerr.CompensationErr)
	}

	if _, err := f.svc.employees.FindEmployeeByExternalID(ctx, 1); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected orphan to be removed, got %v", err)
	}
	if f.recorder.compensations[CompensationDeleted] != 1 {
		t.Fatalf("expected one deleting compensation, got %v", f.recorder.compensations)
	}
	if f.recorder.operations[OperationAdd+"/"+OutcomeCompensated] != 1 {
		t.Fatalf("expected compensated outcome, got %v", f.recorder.operations)
	}
}

func TestService_AddEmployee_ReportsCompensationFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.companies.failAdd = errors.New("aggregate write failed")
	f.employees.deleteErr = errors.New("delete failed")

	_, err := f.svc.AddEmployee(context.Background(), input(1, 10000, "Acme"))

	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if cerr.Compensated() || !errors.Is(err, f.employees.deleteErr) {
		t.Fatalf("expected compensation failure to be reported, got %v", err)
	}
	if f.recorder.compensations[CompensationFailed] != 1 {
		t.Fatalf("expected failed compensation metric, got %v", f.recorder.compensations)
	}
}

func TestService_AddEmployee_CompensationNoopAfterRollback(t *testing.T) {
	t.Parallel()

	employees := newMemEmployees()
	f := newFixture()
	// fixture の社員リポジトリをトランザクションで巻き戻せるように差し替えます。
	f.employees = employees
	employeeSvc := employee.NewService(employees, &keySeq{})
	companySvc := company.NewService(f.companies, employeeSvc, nil, nil)
	f.svc = NewService(employeeSvc, companySvc, WithRecorder(f.recorder), WithTransactionManager(rollbackTx{employees: employees}))
	f.companies.failAdd = errors.New("aggregate write failed")

	_, err := f.svc.AddEmployee(context.Background(), input(1, 10000, "Acme"))
	if !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
	if len(employees.byID) != 0 {
		t.Fatalf("expected no employee after rollback")
	}
	if f.recorder.compensations[CompensationNoop] != 1 {
		t.Fatalf("expected no-op compensation, got %v", f.recorder.compensations)
	}
}

func TestService_AddEmployee_RetryReportsLatestAttempt(t *testing.T) {
	t.Parallel()

	employees := newMemEmployees()
	f := newFixture()
	f.employees = employees
	employeeSvc := employee.NewService(employees, &keySeq{})
	companySvc := company.NewService(f.companies, employeeSvc, nil, nil)
	f.companies.failAdd = errors.New("transient aggregate failure")

	tx := retryingTx{
		employees: employees,
		betweenAttempts: func() {
			// 再試行までの間に同じ ID の社員が別経路で登録されたものとします。
			employees.byID[1] = &employee.Employee{Key: "concurrent", ID: 1, CompanyName: "Acme", Salary: decimal.NewFromInt(9000)}
		},
	}
	f.svc = NewService(employeeSvc, companySvc, WithRecorder(f.recorder), WithTransactionManager(tx))

	_, err := f.svc.AddEmployee(context.Background(), input(1, 10000, "Acme"))
	if !errors.Is(err, employee.ErrEmployeeAlreadyExists) {
		t.Fatalf("expected ErrEmployeeAlreadyExists from the last attempt, got %v", err)
	}
	var cerr *ConsistencyError
	if errors.As(err, &cerr) {
		t.Fatalf("a failed create must not be reported as a consistency error: %v", err)
	}
	if got, ok := employees.byID[1]; !ok || got.Key != "concurrent" {
		t.Fatalf("the concurrently registered employee must be left untouched, got %+v", got)
	}
	if len(f.recorder.compensations) != 0 {
		t.Fatalf("expected no compensation, got %v", f.recorder.compensations)
	}
}

func TestService_RemoveEmployee_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := f.svc.RemoveEmployee(context.Background(), 42); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if f.recorder.operations[OperationRemove+"/"+OutcomeRejected] != 1 {
		t.Fatalf("expected rejected outcome, got %v", f.recorder.operations)
	}
}

func TestService_RemoveEmployee_ReturnsRemovedRecord(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.AddEmployee(ctx, input(7, 10000, "Acme")); err != nil {
		t.Fatalf("add: %v", err)
	}
	removed, err := f.svc.RemoveEmployee(ctx, 7)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.ID != 7 || removed.CompanyName != "Acme" {
		t.Fatalf("unexpected removed record: %+v", removed)
	}
	if _, ok := f.employees.byID[7]; ok {
		t.Fatalf("employee record must be deleted")
	}
}
