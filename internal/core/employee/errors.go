package employee

import (
	"errors"
	"fmt"
)

// ErrInvalidEmployee は入力値が不正な場合のエラーです。各項目のエラーはこれをラップします。
var ErrInvalidEmployee = errors.New("employee: invalid input")

var (
	ErrInvalidID          = fmt.Errorf("%w: id", ErrInvalidEmployee)
	ErrInvalidEmail       = fmt.Errorf("%w: emailAddress", ErrInvalidEmployee)
	ErrInvalidCompanyName = fmt.Errorf("%w: companyName", ErrInvalidEmployee)
	ErrInvalidGender      = fmt.Errorf("%w: gender", ErrInvalidEmployee)
	ErrInvalidName        = fmt.Errorf("%w: name", ErrInvalidEmployee)
	ErrInvalidSalary      = fmt.Errorf("%w: salary", ErrInvalidEmployee)
	ErrInvalidTitle       = fmt.Errorf("%w: title", ErrInvalidEmployee)
)

var (
	ErrEmployeeNotFound      = errors.New("employee: not found")
	ErrEmployeeAlreadyExists = errors.New("employee: id already exists")
)
