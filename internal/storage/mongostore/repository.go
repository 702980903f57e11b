package mongostore

import (
	"context"

	"roombook/internal/storage"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	return s.findReservation(ctx, bson.M{"_id": id})
}

func (s *Store) ListRoomReservations(ctx context.Context, roomID string) ([]*model.Reservation, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	return s.findReservations(ctx, bson.M{"room_id": roomID})
}

func (s *Store) ListReservations(ctx context.Context) ([]*model.Reservation, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	return s.findReservations(ctx, bson.M{})
}

func (s *Store) findReservation(ctx context.Context, filter bson.M) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.reservations.FindOne(ctx, filter).Decode(&r); err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}

func (s *Store) findReservations(ctx context.Context, filter bson.M) ([]*model.Reservation, error) {
	cursor, err := s.reservations.Find(ctx, filter, byStart)
	if err != nil {
		return nil, translateErr(err)
	}
	defer cursor.Close(ctx)

	out := make([]*model.Reservation, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translateErr(err)
	}
	return out, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *model.Room) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	_, err := s.rooms.InsertOne(ctx, room)
	return translateErr(err)
}

func (s *Store) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	if err := s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		return nil, translateErr(err)
	}
	return &room, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]*model.Room, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	cursor, err := s.rooms.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, translateErr(err)
	}
	defer cursor.Close(ctx)

	rooms := make([]*model.Room, 0)
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, translateErr(err)
	}
	return rooms, nil
}

func (s *Store) UpdateRoom(ctx context.Context, room *model.Room) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	res, err := s.rooms.UpdateOne(ctx, bson.M{"_id": room.ID}, bson.M{
		"$set": bson.M{
			"name":       room.Name,
			"capacity":   room.Capacity,
			"updated_at": room.UpdatedAt,
		},
	})
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountRooms(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	n, err := s.rooms.CountDocuments(ctx, bson.M{})
	return n, translateErr(err)
}

func (s *Store) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	_, err := s.customers.InsertOne(ctx, customer)
	return translateErr(err)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	return s.findCustomer(ctx, bson.M{"_id": id})
}

func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	return s.findCustomer(ctx, bson.M{"email": email})
}

func (s *Store) findCustomer(ctx context.Context, filter bson.M) (*model.Customer, error) {
	var c model.Customer
	if err := s.customers.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	cursor, err := s.customers.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, translateErr(err)
	}
	defer cursor.Close(ctx)

	customers := make([]*model.Customer, 0)
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, translateErr(err)
	}
	return customers, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"email":      customer.Email,
		"name":       customer.Name,
		"updated_at": customer.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if customer.Phone == "" {
		update["$unset"] = bson.M{"phone": ""}
	} else {
		set["phone"] = customer.Phone
	}

	res, err := s.customers.UpdateOne(ctx, bson.M{"_id": customer.ID}, update)
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
