package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type sessionStarter interface {
	StartSession(opts ...*options.SessionOptions) (mongo.Session, error)
}

// TransactionManager はセッションのトランザクションで fn を実行します。
// 無効化されている場合 (単一ノード構成など) は fn をそのまま実行します。
type TransactionManager struct {
	client  sessionStarter
	enabled bool
	tracer  trace.Tracer
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(client sessionStarter, enabled bool) *TransactionManager {
	return &TransactionManager{
		client:  client,
		enabled: enabled && client != nil,
		tracer:  otel.Tracer("github.com/ogurasousui/staffing-api/internal/platform/db/mongo"),
	}
}

// Enabled はトランザクションが有効かを返します。
func (m *TransactionManager) Enabled() bool {
	return m != nil && m.enabled
}

// WithinReadOnly は fn をそのまま実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// WithinReadWrite はトランザクション内で fn を実行します。一時的なエラーの場合 fn は再実行されます。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	if !m.Enabled() || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := m.tracer.Start(ctx, "mongo.transaction", trace.WithAttributes(attribute.String("db.system", "mongodb")))
	defer span.End()

	sess, err := m.client.StartSession()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start session")
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return err
	}
	return nil
}
