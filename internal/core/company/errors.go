package company

import "errors"

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company: not found")
	// ErrCompanyAlreadyExists は同名の会社が既に存在する場合に返却されます。
	ErrCompanyAlreadyExists = errors.New("company: already exists")
	// ErrInvalidCompanyName は会社名が不正な場合に返却されます。
	ErrInvalidCompanyName = errors.New("company: invalid name")
	// ErrInvalidMember は社員参照が不正な場合に返却されます。
	ErrInvalidMember = errors.New("company: invalid member")
)
