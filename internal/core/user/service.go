package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// PasswordHasher はパスワードのハッシュ化と照合を行います。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer はアクセストークンの発行と検証を行います。
type TokenIssuer interface {
	Issue(p Principal) (Token, error)
	Verify(token string) (*Principal, error)
}

// Message は送信するメールです。
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer はメールを送信します。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, Message) error { return nil }

const (
	signupSubject = "Sign up successful"
	signupBody    = "<h1>You successfully signed up! </h1>"
)

// Service はサインアップ・ログイン・認証をまとめます。
type Service struct {
	repo   Repository
	hasher PasswordHasher
	tokens TokenIssuer
	mailer Mailer
	clock  Clock
	log    *logger.Logger
}

// UseCase は認証ユースケースの公開インターフェースです。
type UseCase interface {
	Signup(ctx context.Context, in SignupInput) (*User, error)
	Login(ctx context.Context, in LoginInput) (Token, error)
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// NewService は Service を生成します。mailer, clock, log は nil の場合に既定の実装を使います。
func NewService(repo Repository, hasher PasswordHasher, tokens TokenIssuer, mailer Mailer, clock Clock, log *logger.Logger) *Service {
	if mailer == nil {
		mailer = noopMailer{}
	}
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{repo: repo, hasher: hasher, tokens: tokens, mailer: mailer, clock: clock, log: log}
}

// SignupInput はサインアップ時の入力です。
type SignupInput struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Roles           []Role `validate:"dive,oneof=ADMIN USER"`
}

// LoginInput はログイン時の入力です。
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldErrors = map[string]error{
	"Email":           ErrInvalidEmail,
	"Password":        ErrInvalidPassword,
	"ConfirmPassword": ErrPasswordMismatch,
	"Roles":           ErrInvalidRole,
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if sentinel, ok := fieldErrors[verrs[0].StructField()]; ok {
			return sentinel
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// Signup はユーザーを登録し、登録完了メールを送信します。
// メール送信の失敗はログに残すのみで、登録は成功として扱います。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	in.Email = normalizeEmail(in.Email)
	if len(in.Roles) == 0 {
		in.Roles = []Role{RoleUser}
	}
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("user: hash password: %w", err)
	}

	now := s.clock.Now()
	created, err := s.repo.Create(ctx, &User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        dedupeRoles(in.Roles),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, Message{To: created.Email, Subject: signupSubject, HTML: signupBody}); err != nil {
		s.log.Warn("signup mail failed", "user_id", created.ID, "error", err)
	}

	return created, nil
}

// Login は認証情報を照合し、アクセストークンを発行します。
func (s *Service) Login(ctx context.Context, in LoginInput) (Token, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return Token{}, validationError(err)
	}

	u, err := s.repo.FindByEmail(ctx, in.Email)
	if errors.Is(err, ErrUserNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles})
	if err != nil {
		return Token{}, fmt.Errorf("user: issue token: %w", err)
	}
	return token, nil
}

// Authenticate はトークンを検証し、呼び出し元を返します。
func (s *Service) Authenticate(_ context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	p, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return p, nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func dedupeRoles(roles []Role) []Role {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
