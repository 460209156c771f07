package mongo

import (
	"context"
	"errors"

	"github.com/ogurasousui/staffing-api/internal/core/employee"
	mongodb "github.com/ogurasousui/staffing-api/internal/platform/db/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type employeeDocument struct {
	Key          string               `bson:"_id"`
	ExternalID   int64                `bson:"externalId"`
	EmailAddress string               `bson:"emailAddress"`
	CompanyName  string               `bson:"companyName"`
	Gender       string               `bson:"gender"`
	Name         string               `bson:"name"`
	Salary       primitive.Decimal128 `bson:"salary"`
	Title        string               `bson:"title"`
}

func (d employeeDocument) toEntity() (*employee.Employee, error) {
	salary, err := fromDecimal128(d.Salary)
	if err != nil {
		return nil, err
	}
	return &employee.Employee{
		Key:          d.Key,
		ID:           d.ExternalID,
		EmailAddress: d.EmailAddress,
		CompanyName:  d.CompanyName,
		Gender:       d.Gender,
		Name:         d.Name,
		Salary:       salary,
		Title:        d.Title,
	}, nil
}

// EmployeeRepository は MongoDB を利用した社員永続化の実装です。
type EmployeeRepository struct {
	coll *mongo.Collection
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(db *mongo.Database) *EmployeeRepository {
	return &EmployeeRepository{coll: db.Collection(mongodb.CollectionEmployees)}
}

// Create は社員を新規作成します。外部 ID の一意性は一意インデックスで保証します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	salary, err := toDecimal128(e.Salary)
	if err != nil {
		return nil, err
	}

	doc := employeeDocument{
		Key:          e.Key,
		ExternalID:   e.ID,
		EmailAddress: e.EmailAddress,
		CompanyName:  e.CompanyName,
		Gender:       e.Gender,
		Name:         e.Name,
		Salary:       salary,
		Title:        e.Title,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, employee.ErrEmployeeAlreadyExists
		}
		return nil, err
	}

	created := *e
	return &created, nil
}

// FindByExternalID は外部 ID で社員を取得します。
func (r *EmployeeRepository) FindByExternalID(ctx context.Context, id int64) (*employee.Employee, error) {
	var doc employeeDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "externalId", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}
	return doc.toEntity()
}

// FindByKeys は内部キーの集合に対応する社員を外部 ID 順に取得します。
func (r *EmployeeRepository) FindByKeys(ctx context.Context, keys []string) ([]*employee.Employee, error) {
	if len(keys) == 0 {
		return []*employee.Employee{}, nil
	}
	return r.find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: keys}}}})
}

// DeleteByExternalID は外部 ID で社員を削除します。存在しない場合は false を返します。
func (r *EmployeeRepository) DeleteByExternalID(ctx context.Context, id int64) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "externalId", Value: id}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// List は全社員を外部 ID 順に取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	return r.find(ctx, bson.D{})
}

func (r *EmployeeRepository) find(ctx context.Context, filter bson.D) ([]*employee.Employee, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "externalId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []employeeDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	employees := make([]*employee.Employee, 0, len(docs))
	for _, doc := range docs {
		e, err := doc.toEntity()
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, nil
}
