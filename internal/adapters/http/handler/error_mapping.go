package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-api/internal/core/company"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/ogurasousui/staffing-api/internal/core/staffing"
	"github.com/ogurasousui/staffing-api/internal/core/user"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
)

// ErrBadRequest はリクエストの形式 (JSON やクエリ) が不正な場合のエラーです。
var ErrBadRequest = errors.New("bad request")

const (
	msgConsistency = "employee could not be added consistently"
	msgInternal    = "internal server error"
)

func toHTTPError(err error) (int, string) {
	switch {
	case errors.Is(err, staffing.ErrConsistency):
		return http.StatusInternalServerError, msgConsistency
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, employee.ErrInvalidEmployee),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, company.ErrInvalidCompanyName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, user.ErrUnauthenticated), errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, company.ErrCompanyNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, employee.ErrEmployeeAlreadyExists), errors.Is(err, user.ErrEmailAlreadyExists):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// ErrorHandler はハンドラーが積んだ最後のエラーを共通形式のレスポンスに変換します。
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		code, message := toHTTPError(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed", "route", c.FullPath(), "error", err)
		}
		respondError(c, code, message)
	}
}
