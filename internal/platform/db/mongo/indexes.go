package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// コレクション名です。
const (
	CollectionEmployees = "employees"
	CollectionCompanies = "companies"
	CollectionUsers     = "users"
)

// IndexSpec はコレクションごとに作成するインデックスです。
type IndexSpec struct {
	Collection string
	Model      mongo.IndexModel
}

// Indexes は一意制約を担うインデックスの一覧を返します。
func Indexes() []IndexSpec {
	return []IndexSpec{
		{
			Collection: CollectionEmployees,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "externalId", Value: 1}},
				Options: options.Index().SetName("employees_external_id_unique").SetUnique(true),
			},
		},
		{
			Collection: CollectionCompanies,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "companyName", Value: 1}},
				Options: options.Index().SetName("companies_name_unique").SetUnique(true),
			},
		},
		{
			Collection: CollectionUsers,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("users_email_unique").SetUnique(true),
			},
		},
	}
}

// EnsureIndexes は Indexes を作成します。既存のインデックスはそのまま残ります。
func EnsureIndexes(ctx context.Context, db *mongo.Database) ([]string, error) {
	names := make([]string, 0, len(Indexes()))
	for _, spec := range Indexes() {
		name, err := db.Collection(spec.Collection).Indexes().CreateOne(ctx, spec.Model)
		if err != nil {
			return names, fmt.Errorf("mongo: create index on %s: %w", spec.Collection, err)
		}
		names = append(names, name)
	}
	return names, nil
}
