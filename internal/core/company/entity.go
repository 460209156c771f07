package company

import (
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/shopspring/decimal"
)

// Company は会社ごとの集計レコードです。
// Quantity は Roster の要素数、SalaryBudget は Roster に含まれる社員の給与合計と常に一致します。
type Company struct {
	Name         string
	SalaryBudget decimal.Decimal
	Quantity     int
	Roster       []string
}

// Member は集計に加算・減算される社員の参照です。
type Member struct {
	Key    string
	Salary decimal.Decimal
}

// View はロスターを社員レコードに解決した会社です。
type View struct {
	Company
	Employees []*employee.Employee
}

// HasMember は key がロスターに含まれるかを返します。
func (c *Company) HasMember(key string) bool {
	for _, k := range c.Roster {
		if k == key {
			return true
		}
	}
	return false
}
