package model

import "time"

// ReservationLock is the per-room (or per-customer) document every atomic booking
// unit writes first, so concurrent units on the same key collide at commit.
type ReservationLock struct {
	ID        string    `bson:"_id" json:"id"`
	Version   int64     `bson:"version" json:"version"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
