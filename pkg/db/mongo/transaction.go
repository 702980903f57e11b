package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	writeConflictCode           = 112
	labelTransientTransaction   = "TransientTransactionError"
	labelUnknownCommitResult    = "UnknownTransactionCommitResult"
	defaultMaxCommitTime        = 2 * time.Second
	maxUnknownCommitResultRetry = 3
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client        *mongo.Client
	maxCommitTime time.Duration
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client:        client,
		maxCommitTime: defaultMaxCommitTime,
	}
}

// ExecuteTransaction runs fn once inside a snapshot transaction. Unlike
// session.WithTransaction it never re-runs fn on a transient error; callers get
// the write conflict back and decide. Only a commit with an unknown outcome is
// retried, since the commit itself is idempotent.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetMaxCommitTime(&m.maxCommitTime)

	if err := session.StartTransaction(txOpts); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	sessCtx := mongo.NewSessionContext(ctx, session)
	if err := fn(sessCtx); err != nil {
		_ = session.AbortTransaction(context.WithoutCancel(ctx))
		return err
	}

	for attempt := 0; ; attempt++ {
		err = session.CommitTransaction(sessCtx)
		if err == nil {
			return nil
		}
		if !hasLabel(err, labelUnknownCommitResult) || attempt >= maxUnknownCommitResultRetry || ctx.Err() != nil {
			break
		}
	}
	_ = session.AbortTransaction(context.WithoutCancel(ctx))
	return fmt.Errorf("transaction commit failed: %w", err)
}

// IsWriteConflict reports whether err is a server-side write conflict between
// concurrent transactions.
func IsWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel(labelTransientTransaction)
	}
	return false
}

func hasLabel(err error, label string) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel(label)
}
