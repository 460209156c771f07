package user

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput は入力が不正な場合に返却されます。以下の入力エラーはすべてこれをラップします。
	ErrInvalidInput = errors.New("user: invalid input")
	// ErrInvalidEmail はメールアドレスが不正な場合に返却されます。
	ErrInvalidEmail = fmt.Errorf("%w: email", ErrInvalidInput)
	// ErrInvalidPassword はパスワードが短すぎる場合に返却されます。
	ErrInvalidPassword = fmt.Errorf("%w: password", ErrInvalidInput)
	// ErrPasswordMismatch は確認用パスワードが一致しない場合に返却されます。
	ErrPasswordMismatch = fmt.Errorf("%w: password do not match", ErrInvalidInput)
	// ErrInvalidRole は未知の権限が指定された場合に返却されます。
	ErrInvalidRole = fmt.Errorf("%w: role", ErrInvalidInput)

	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("user: not found")
	// ErrEmailAlreadyExists はメールアドレス重複時に返却されます。
	ErrEmailAlreadyExists = errors.New("user: email already exists")
	// ErrInvalidCredentials はログインに失敗した場合に返却されます。
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	// ErrUnauthenticated はトークンが無い、または検証できない場合に返却されます。
	ErrUnauthenticated = errors.New("user: unauthenticated")
)
