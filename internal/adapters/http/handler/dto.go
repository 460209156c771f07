package handler

import (
	"encoding/json"
	"time"

	"github.com/ogurasousui/staffing-api/internal/core/company"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/ogurasousui/staffing-api/internal/core/user"
	"github.com/shopspring/decimal"
)

type employeeRequest struct {
	ID           int64           `json:"id"`
	EmailAddress string          `json:"emailAddress"`
	CompanyName  string          `json:"companyName"`
	Gender       string          `json:"gender"`
	Name         string          `json:"name"`
	Salary       decimal.Decimal `json:"salary"`
	Title        string          `json:"title"`
}

func (r employeeRequest) toInput() employee.CreateEmployeeInput {
	return employee.CreateEmployeeInput{
		ID:           r.ID,
		EmailAddress: r.EmailAddress,
		CompanyName:  r.CompanyName,
		Gender:       r.Gender,
		Name:         r.Name,
		Salary:       r.Salary,
		Title:        r.Title,
	}
}

// 内部キーはレスポンスに含めません。
type employeeResponse struct {
	ID           int64       `json:"id"`
	EmailAddress string      `json:"emailAddress"`
	CompanyName  string      `json:"companyName"`
	Gender       string      `json:"gender"`
	Name         string      `json:"name"`
	Salary       json.Number `json:"salary"`
	Title        string      `json:"title"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:           e.ID,
		EmailAddress: e.EmailAddress,
		CompanyName:  e.CompanyName,
		Gender:       e.Gender,
		Name:         e.Name,
		Salary:       json.Number(e.Salary.String()),
		Title:        e.Title,
	}
}

type companyResponse struct {
	CompanyName  string             `json:"companyName"`
	SalaryBudget json.Number        `json:"salaryBudget"`
	Quantity     int                `json:"quantity"`
	Employees    []employeeResponse `json:"employees"`
}

func toCompanyResponse(v *company.View) companyResponse {
	employees := make([]employeeResponse, 0, len(v.Employees))
	for _, e := range v.Employees {
		employees = append(employees, toEmployeeResponse(e))
	}
	return companyResponse{
		CompanyName:  v.Name,
		SalaryBudget: json.Number(v.SalaryBudget.String()),
		Quantity:     v.Quantity,
		Employees:    employees,
	}
}

type salaryResponse struct {
	CompanyName  string      `json:"companyName"`
	SalaryBudget json.Number `json:"salaryBudget"`
}

type signupRequest struct {
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirmPassword"`
	Roles           []string `json:"roles"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *user.User) userResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return userResponse{ID: u.ID, Email: u.Email, Roles: roles, CreatedAt: u.CreatedAt}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn int64     `json:"expiresIn"`
}
