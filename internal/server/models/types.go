package models

import "time"

type Laptop struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Brand     string    `json:"brand"`
	Price     int64     `json:"price"`
	UserEmail string    `json:"user_email"`
	CreatedAt time.Time `json:"created_at"`
	ImageID   string    `json:"image_id"`
}
