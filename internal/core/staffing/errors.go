package staffing

import (
	"errors"
	"fmt"
)

// ErrConsistency は社員レコードと会社集計の更新が揃わなかったことを表します。
var ErrConsistency = errors.New("staffing: company aggregate update failed")

// ConsistencyError は社員登録後に会社集計の更新が失敗したことを表します。
// CompensationErr は補償 (登録済み社員の削除) 自体が失敗した場合に設定されます。
type ConsistencyError struct {
	EmployeeID      int64
	Err             error
	CompensationErr error
}

func (e *ConsistencyError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("staffing: employee %d: aggregate update failed: %v; compensation failed: %v", e.EmployeeID, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("staffing: employee %d: aggregate update failed: %v", e.EmployeeID, e.Err)
}

// Is は ErrConsistency との比較を可能にします。
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

func (e *ConsistencyError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.CompensationErr != nil {
		errs = append(errs, e.CompensationErr)
	}
	return errs
}

// Compensated は補償が失敗していないかを返します。
func (e *ConsistencyError) Compensated() bool {
	return e.CompensationErr == nil
}
