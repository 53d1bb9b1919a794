package models

import "time"

type Home struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}
