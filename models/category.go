package models

import "time"

type Category struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Slug        string    `bson:"slug" json:"slug"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Image       string    `bson:"image,omitempty" json:"image,omitempty"`
	IsActive    bool      `bson:"is_active" json:"isActive"`
	CreatedBy   string    `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}
