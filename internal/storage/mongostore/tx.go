package mongostore

import (
	"context"
	"time"

	"roombook/internal/storage"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var byStart = options.Find().SetSort(bson.D{{Key: "start_at", Value: 1}, {Key: "_id", Value: 1}})

// tx runs every call on the session context handed to the TxFunc.
type tx struct {
	s *Store
}

func (t *tx) Lock(ctx context.Context, keys ...string) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, key := range storage.SortedKeys(keys) {
		_, err := t.s.locks.UpdateOne(ctx,
			bson.M{"_id": key},
			bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"updated_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return translateErr(err)
		}
	}
	return nil
}

func (t *tx) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := t.s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		return nil, translateErr(err)
	}
	return &room, nil
}

func (t *tx) FindCustomer(ctx context.Context, id string) (*model.Customer, error) {
	return t.s.findCustomer(ctx, bson.M{"_id": id})
}

func (t *tx) FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return t.s.findCustomer(ctx, bson.M{"email": email})
}

func (t *tx) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return t.s.findReservation(ctx, bson.M{"_id": id})
}

func (t *tx) FindReservationByIdempotencyKey(ctx context.Context, key string) (*model.Reservation, error) {
	if key == "" {
		return nil, storage.ErrNotFound
	}
	return t.s.findReservation(ctx, bson.M{"idempotency_key": key})
}

func (t *tx) FindRoomReservations(ctx context.Context, roomID string, from, to time.Time) ([]*model.Reservation, error) {
	return t.s.findReservations(ctx, bson.M{
		"room_id":  roomID,
		"start_at": bson.M{"$lt": to},
		"end_at":   bson.M{"$gt": from},
	})
}

func (t *tx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	_, err := t.s.reservations.InsertOne(ctx, r)
	return translateErr(err)
}

func (t *tx) ReplaceReservation(ctx context.Context, r *model.Reservation) error {
	res, err := t.s.reservations.ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteReservation(ctx context.Context, id string) error {
	res, err := t.s.reservations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateErr(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteRoomReservations(ctx context.Context, roomID string) ([]*model.Reservation, error) {
	return t.deleteReservations(ctx, bson.M{"room_id": roomID})
}

func (t *tx) DeleteCustomerReservations(ctx context.Context, customerID string) ([]*model.Reservation, error) {
	return t.deleteReservations(ctx, bson.M{"customer_id": customerID})
}

func (t *tx) deleteReservations(ctx context.Context, filter bson.M) ([]*model.Reservation, error) {
	removed, err := t.s.findReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return removed, nil
	}
	if _, err := t.s.reservations.DeleteMany(ctx, filter); err != nil {
		return nil, translateErr(err)
	}
	return removed, nil
}

func (t *tx) DeleteRoom(ctx context.Context, id string) error {
	return deleteByID(ctx, t.s.rooms, id)
}

func (t *tx) DeleteCustomer(ctx context.Context, id string) error {
	return deleteByID(ctx, t.s.customers, id)
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateErr(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
