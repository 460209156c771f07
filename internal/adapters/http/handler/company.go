package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-api/internal/core/company"
)

// CompanyHandler は会社集計の参照を扱います。
type CompanyHandler struct {
	svc company.UseCase
}

// NewCompanyHandler は CompanyHandler を生成します。
func NewCompanyHandler(svc company.UseCase) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// Get は会社とロスターの社員を返します。
func (h *CompanyHandler) Get(c *gin.Context) {
	name, err := companyNameQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	view, err := h.svc.GetCompany(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, toCompanyResponse(view))
}

// Salary は会社の給与予算を返します。
func (h *CompanyHandler) Salary(c *gin.Context) {
	name, err := companyNameQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	budget, err := h.svc.GetSalaryBudget(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, salaryResponse{CompanyName: name, SalaryBudget: json.Number(budget.String())})
}

func companyNameQuery(c *gin.Context) (string, error) {
	name := strings.TrimSpace(c.Query("companyName"))
	if name == "" {
		return "", fmt.Errorf("%w: companyName is required", ErrBadRequest)
	}
	return name, nil
}
