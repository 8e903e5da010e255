package model

import "time"

type Subject struct {
	ID         int64     `json:"id"`
	ScholiumID int64     `json:"scholium_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"` // hex, например #3b82f6
	CreatedAt  time.Time `json:"created_at"`
}
