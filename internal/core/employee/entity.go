package employee

import "github.com/shopspring/decimal"

// 給与の許容範囲です。
var (
	MinSalary = decimal.NewFromInt(8000)
	MaxSalary = decimal.NewFromInt(40000)
)

// Employee は社員エンティティです。
// Key は永続化層での内部キー、ID は呼び出し元が指定する外部 ID です。
type Employee struct {
	Key          string
	ID           int64
	EmailAddress string
	CompanyName  string
	Gender       string
	Name         string
	Salary       decimal.Decimal
	Title        string
}
