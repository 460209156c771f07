package mongo

import (
	"context"
	"errors"

	"github.com/ogurasousui/staffing-api/internal/core/company"
	mongodb "github.com/ogurasousui/staffing-api/internal/platform/db/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type companyDocument struct {
	CompanyName  string               `bson:"companyName"`
	SalaryBudget primitive.Decimal128 `bson:"salaryBudget"`
	Quantity     int                  `bson:"quantity"`
	Employees    []string             `bson:"employees"`
}

func (d companyDocument) toEntity() (*company.Company, error) {
	budget, err := fromDecimal128(d.SalaryBudget)
	if err != nil {
		return nil, err
	}
	roster := d.Employees
	if roster == nil {
		roster = []string{}
	}
	return &company.Company{
		Name:         d.CompanyName,
		SalaryBudget: budget,
		Quantity:     d.Quantity,
		Roster:       roster,
	}, nil
}

// CompanyRepository は MongoDB を利用した会社集計永続化の実装です。
// 加算・減算はロスターの所属条件付きの単一ドキュメント更新で行います。
type CompanyRepository struct {
	coll *mongo.Collection
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(db *mongo.Database) *CompanyRepository {
	return &CompanyRepository{coll: db.Collection(mongodb.CollectionCompanies)}
}

// FindByName は会社名で会社を取得します。
func (r *CompanyRepository) FindByName(ctx context.Context, name string) (*company.Company, error) {
	var doc companyDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "companyName", Value: name}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}
	return doc.toEntity()
}

// Create は member のみを含む会社を作成します。
// 挿入は upsert で行い、既存の会社があれば ErrCompanyAlreadyExists を返します。
func (r *CompanyRepository) Create(ctx context.Context, name string, member company.Member) (*company.Company, error) {
	salary, err := toDecimal128(member.Salary)
	if err != nil {
		return nil, err
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "companyName", Value: name}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{
			{Key: "salaryBudget", Value: salary},
			{Key: "quantity", Value: 1},
			{Key: "employees", Value: bson.A{member.Key}},
		}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, company.ErrCompanyAlreadyExists
		}
		return nil, err
	}
	if res.UpsertedCount == 0 {
		return nil, company.ErrCompanyAlreadyExists
	}

	return &company.Company{Name: name, SalaryBudget: member.Salary, Quantity: 1, Roster: []string{member.Key}}, nil
}

// AddMember は member がロスターに無い場合に限り予算と人数を加算します。
func (r *CompanyRepository) AddMember(ctx context.Context, name string, member company.Member) (bool, error) {
	salary, err := toDecimal128(member.Salary)
	if err != nil {
		return false, err
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{
			{Key: "companyName", Value: name},
			{Key: "employees", Value: bson.D{{Key: "$ne", Value: member.Key}}},
		},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "salaryBudget", Value: salary}, {Key: "quantity", Value: 1}}},
			{Key: "$addToSet", Value: bson.D{{Key: "employees", Value: member.Key}}},
		},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// 条件に合わなかった理由が会社の不在か既存メンバーかを区別します。
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "companyName", Value: name}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, company.ErrCompanyNotFound
	}
	return false, nil
}

// RemoveMember は member がロスターにある場合に限り予算と人数を減算します。
func (r *CompanyRepository) RemoveMember(ctx context.Context, name string, member company.Member) (bool, error) {
	salary, err := toDecimal128(member.Salary.Neg())
	if err != nil {
		return false, err
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{
			{Key: "companyName", Value: name},
			{Key: "employees", Value: member.Key},
		},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "salaryBudget", Value: salary}, {Key: "quantity", Value: -1}}},
			{Key: "$pull", Value: bson.D{{Key: "employees", Value: member.Key}}},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// DeleteIfEmpty は人数が 0 以下の会社を削除します。
func (r *CompanyRepository) DeleteIfEmpty(ctx context.Context, name string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{
		{Key: "companyName", Value: name},
		{Key: "quantity", Value: bson.D{{Key: "$lte", Value: 0}}},
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
