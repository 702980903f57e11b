package model

import "time"

type Customer struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email" validate:"required,email,max=254"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=200"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164,supported_region"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type CustomerUpdate struct {
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone *string `json:"phone,omitempty" validate:"omitempty"`
}
