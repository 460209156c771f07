package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-api/internal/adapters/http/middleware"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/ogurasousui/staffing-api/internal/core/staffing"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
)

// EmployeeHandler は社員の登録・削除・参照を扱います。
// 登録と削除は会社集計の整合を保つ staffing ユースケースを経由します。
type EmployeeHandler struct {
	staffing  staffing.UseCase
	employees employee.UseCase
	log       *logger.Logger
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(staffingSvc staffing.UseCase, employees employee.UseCase, log *logger.Logger) *EmployeeHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EmployeeHandler{staffing: staffingSvc, employees: employees, log: log}
}

// Create は社員を登録し、所属会社の集計に反映します。
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	created, err := h.staffing.AddEmployee(c.Request.Context(), req.toInput())
	if err != nil {
		_ = c.Error(err)
		return
	}

	if p, ok := middleware.PrincipalFrom(c); ok {
		h.log.Debug("employee added", "employee_id", created.ID, "by", p.UserID)
	}
	respond(c, http.StatusCreated, toEmployeeResponse(created))
}

// Delete は社員を削除し、所属会社の集計から外します。
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, err := externalIDQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	removed, err := h.staffing.RemoveEmployee(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, toEmployeeResponse(removed))
}

// Get は id 指定時は 1 件、未指定時は外部 ID をキーにした全件を返します。
func (h *EmployeeHandler) Get(c *gin.Context) {
	if _, ok := c.GetQuery("id"); !ok {
		h.list(c)
		return
	}

	id, err := externalIDQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	found, err := h.employees.FindEmployeeByExternalID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, toEmployeeResponse(found))
}

func (h *EmployeeHandler) list(c *gin.Context) {
	all, err := h.employees.ListEmployees(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make(map[int64]employeeResponse, len(all))
	for id, e := range all {
		out[id] = toEmployeeResponse(e)
	}
	respond(c, http.StatusOK, out)
}

func externalIDQuery(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Query("id"))
	if raw == "" {
		return 0, fmt.Errorf("%w: id is required", ErrBadRequest)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", ErrBadRequest)
	}
	return id, nil
}
