package employee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
)

type sequenceKeys struct {
	seq int
}

func (s *sequenceKeys) NewKey() string {
	s.seq++
	return fmt.Sprintf("key-%d", s.seq)
}

type fakeEmployeeRepo struct {
	byID      map[int64]*Employee
	createErr error
	calls     int
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{byID: make(map[int64]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	r.calls++
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byID[e.ID]; ok {
		return nil, ErrEmployeeAlreadyExists
	}
	clone := *e
	r.byID[e.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeEmployeeRepo) FindByExternalID(_ context.Context, id int64) (*Employee, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *fakeEmployeeRepo) FindByKeys(_ context.Context, keys []string) ([]*Employee, error) {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	var out []*Employee
	for _, e := range r.byID {
		if _, ok := wanted[e.Key]; ok {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEmployeeRepo) DeleteByExternalID(_ context.Context, id int64) (bool, error) {
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *fakeEmployeeRepo) List(_ context.Context) ([]*Employee, error) {
	out := make([]*Employee, 0, len(r.byID))
	for _, e := range r.byID {
		clone := *e
		out = append(out, &clone)
	}
	return out, nil
}

func validInput() CreateEmployeeInput {
	return CreateEmployeeInput{
		ID:           1,
		EmailAddress: " Alice@Example.com ",
		CompanyName:  " Acme ",
		Gender:       "female",
		Name:         " Alice ",
		Salary:       decimal.NewFromInt(10000),
		Title:        "Engineer",
	}
}

func TestService_CreateEmployee_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &sequenceKeys{})

	created, err := svc.CreateEmployee(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if created.Key != "key-1" {
		t.Fatalf("expected generated key, got %s", created.Key)
	}
	if created.EmailAddress != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", created.EmailAddress)
	}
	if created.CompanyName != "Acme" || created.Name != "Alice" {
		t.Fatalf("expected trimmed fields, got %q %q", created.CompanyName, created.Name)
	}
	if !created.Salary.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected salary: %s", created.Salary)
	}
}

func TestService_CreateEmployee_ValidationGate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*CreateEmployeeInput)
		want   error
	}{
		{"salary below range", func(in *CreateEmployeeInput) { in.Salary = decimal.NewFromInt(7999) }, ErrInvalidSalary},
		{"salary above range", func(in *CreateEmployeeInput) { in.Salary = decimal.NewFromInt(40001) }, ErrInvalidSalary},
		{"missing salary", func(in *CreateEmployeeInput) { in.Salary = decimal.Zero }, ErrInvalidSalary},
		{"invalid email", func(in *CreateEmployeeInput) { in.EmailAddress = "not an email" }, ErrInvalidEmail},
		{"missing id", func(in *CreateEmployeeInput) { in.ID = 0 }, ErrInvalidID},
		{"blank company", func(in *CreateEmployeeInput) { in.CompanyName = "   " }, ErrInvalidCompanyName},
		{"missing gender", func(in *CreateEmployeeInput) { in.Gender = "" }, ErrInvalidGender},
		{"missing name", func(in *CreateEmployeeInput) { in.Name = "" }, ErrInvalidName},
		{"missing title", func(in *CreateEmployeeInput) { in.Title = "" }, ErrInvalidTitle},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeEmployeeRepo()
			svc := NewService(repo, &sequenceKeys{})

			in := validInput()
			tc.mutate(&in)

			_, err := svc.CreateEmployee(context.Background(), in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrInvalidEmployee) {
				t.Fatalf("expected error to match ErrInvalidEmployee, got %v", err)
			}
			if repo.calls != 0 {
				t.Fatalf("expected no persistence on invalid input, got %d calls", repo.calls)
			}
		})
	}
}

func TestService_CreateEmployee_SalaryBoundsInclusive(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), &sequenceKeys{})

	for i, raw := range []string{"8000", "40000", "8000.00", "39999.99", "12345.600"} {
		in := validInput()
		in.ID = int64(i + 1)
		in.Salary = decimal.RequireFromString(raw)
		created, err := svc.CreateEmployee(context.Background(), in)
		if err != nil {
			t.Fatalf("salary %s should be accepted, got %v", raw, err)
		}
		if !created.Salary.Equal(in.Salary) || created.Salary.Exponent() != -2 {
			t.Fatalf("salary %s should be stored with two decimals, got %s", raw, created.Salary.String())
		}
	}

	for _, raw := range []string{
		"7999.99999999999999999",
		"40000.0000000000000001",
		"7999.9999999999999",
		"7999.99",
		"40000.01",
		"12345.678",
	} {
		in := validInput()
		in.Salary = decimal.RequireFromString(raw)
		if _, err := in.Validate(); !errors.Is(err, ErrInvalidSalary) {
			t.Fatalf("salary %s should be rejected, got %v", raw, err)
		}
	}
}

func TestService_CreateEmployee_PropagatesRepositoryError(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	repo.createErr = errors.New("write failed")
	svc := NewService(repo, &sequenceKeys{})

	if _, err := svc.CreateEmployee(context.Background(), validInput()); !errors.Is(err, repo.createErr) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

func TestService_FindAndDelete(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &sequenceKeys{})
	ctx := context.Background()

	if _, err := svc.CreateEmployee(ctx, validInput()); err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	found, err := svc.FindEmployeeByExternalID(ctx, 1)
	if err != nil {
		t.Fatalf("FindEmployeeByExternalID returned error: %v", err)
	}
	if found.Name != "Alice" {
		t.Fatalf("unexpected employee: %+v", found)
	}

	deleted, err := svc.DeleteEmployeeByExternalID(ctx, 1)
	if err != nil || !deleted {
		t.Fatalf("expected delete to succeed, got deleted=%v err=%v", deleted, err)
	}

	deleted, err = svc.DeleteEmployeeByExternalID(ctx, 1)
	if err != nil || deleted {
		t.Fatalf("expected second delete to be a no-op, got deleted=%v err=%v", deleted, err)
	}

	if _, err := svc.FindEmployeeByExternalID(ctx, 1); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_FindEmployeeByExternalID_InvalidID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil)
	if _, err := svc.FindEmployeeByExternalID(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_ListEmployees_KeyedByExternalID(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, &sequenceKeys{})
	ctx := context.Background()

	for _, id := range []int64{3, 7} {
		in := validInput()
		in.ID = id
		if _, err := svc.CreateEmployee(ctx, in); err != nil {
			t.Fatalf("CreateEmployee returned error: %v", err)
		}
	}

	list, err := svc.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(list) != 2 || list[3] == nil || list[7] == nil {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[7].ID != 7 {
		t.Fatalf("expected map key to match external id, got %d", list[7].ID)
	}
}

func TestService_FindEmployeesByKeys_EmptyInput(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil)
	out, err := svc.FindEmployeesByKeys(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}
