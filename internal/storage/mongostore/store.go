// Package mongostore persists rooms, customers and reservations in MongoDB.
// Atomic units are multi-document snapshot transactions; per-key serialization
// comes from bumping lock documents inside the transaction, which forces a
// write conflict between concurrent units touching the same key.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/internal/storage"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	apperrors "roombook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	RoomsCollection            = "Rooms"
	CustomersCollection        = "Customers"
	ReservationsCollection     = "Reservations"
	ReservationLocksCollection = "Reservation_locks"
)

type Store struct {
	cfg          *config.Config
	client       *mongo.Client
	rooms        *mongo.Collection
	customers    *mongo.Collection
	reservations *mongo.Collection
	locks        *mongo.Collection
	txManager    mongotx.TransactionManager
}

var _ storage.Store = (*Store)(nil)

func New(cfg *config.Config) *Store {
	return NewWithClient(cfg, cfg.Client.Mongo, cfg.MongoDatabaseName)
}

func NewWithClient(cfg *config.Config, client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		cfg:          cfg,
		client:       client,
		rooms:        db.Collection(RoomsCollection),
		customers:    db.Collection(CustomersCollection),
		reservations: db.Collection(ReservationsCollection),
		locks:        db.Collection(ReservationLocksCollection),
		txManager:    mongotx.NewTransactionManager(client),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Store) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	err := s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx, &tx{s: s})
	})
	return translateErr(err)
}

// withTimeout bounds a standalone operation. Inside a transaction the session
// context is returned unchanged so the operation stays in the session.
func (s *Store) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) || storage.IsStorageError(err) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case mongotx.IsWriteConflict(err):
		return fmt.Errorf("%w: %w", storage.ErrWriteConflict, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", storage.ErrDuplicate, err)
	case mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", storage.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
}
