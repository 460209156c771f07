package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-api/internal/core/user"
)

// UserHandler はサインアップとログインを扱います。
type UserHandler struct {
	svc user.UseCase
	now func() time.Time
}

// NewUserHandler は UserHandler を生成します。
func NewUserHandler(svc user.UseCase) *UserHandler {
	return &UserHandler{svc: svc, now: time.Now}
}

// Signup はユーザーを登録します。
func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	roles := make([]user.Role, 0, len(req.Roles))
	for _, r := range req.Roles {
		roles = append(roles, user.Role(r))
	}

	created, err := h.svc.Signup(c.Request.Context(), user.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Roles:           roles,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusCreated, toUserResponse(created))
}

// Login はアクセストークンを発行します。
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), user.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		_ = c.Error(err)
		return
	}

	expiresIn := int64(token.ExpiresAt.Sub(h.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	respond(c, http.StatusOK, tokenResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, ExpiresIn: expiresIn})
}
