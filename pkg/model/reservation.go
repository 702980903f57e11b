package model

import "time"

// Reservation holds the half-open interval [StartUTC, EndUTC) on one room.
type Reservation struct {
	ID             string    `json:"id" bson:"_id"`
	RoomID         string    `json:"room_id" bson:"room_id"`
	CustomerID     string    `json:"customer_id" bson:"customer_id"`
	StartUTC       time.Time `json:"start_utc" bson:"start_at"`
	EndUTC         time.Time `json:"end_utc" bson:"end_at"`
	IdempotencyKey string    `json:"-" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// ReservationDetails is the read projection with the room and customer inlined.
type ReservationDetails struct {
	ID       string       `json:"id"`
	StartUTC time.Time    `json:"start_utc"`
	EndUTC   time.Time    `json:"end_utc"`
	Customer CustomerInfo `json:"customer"`
	Room     RoomInfo     `json:"room"`
}

type CustomerInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type RoomInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}
