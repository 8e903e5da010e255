package model

import (
	"time"

	"github.com/google/uuid"
)

// Scholium учебная группа с единственным хостом
type Scholium struct {
	ID                int64     `json:"id"`
	HostUserID        uuid.UUID `json:"host_user_id"`
	Name              string    `json:"name"`
	EncryptedAccessID string    `json:"-"`
	AccessIDDigest    string    `json:"-"`
	TimeSlots         []byte    `json:"-"` // сырой JSON, декодируется через timeslot.Decode
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ScholiumDetails то, что видит участник на странице группы
type ScholiumDetails struct {
	Scholium
	AccessID string     `json:"access_id"`
	Slots    []TimeSlot `json:"time_slots"`
	Role     MemberRole `json:"role"`
}
