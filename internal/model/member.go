package model

import (
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID               int64     `json:"id"`
	ScholiumID       int64     `json:"scholium_id"`
	UserID           uuid.UUID `json:"user_id"`
	IsHost           bool      `json:"is_host"`
	IsCohost         bool      `json:"is_cohost"`
	CanAddHomework   bool      `json:"can_add_homework"`
	CanCreateSubject bool      `json:"can_create_subject"`
	JoinedAt         time.Time `json:"joined_at"`
}

// MemberRole права участника в сериализуемом виде
type MemberRole struct {
	IsHost           bool `json:"is_host"`
	IsCohost         bool `json:"is_cohost"`
	CanAddHomework   bool `json:"can_add_homework"`
	CanCreateSubject bool `json:"can_create_subject"`
}

// Permissions набор редактируемых прав
type Permissions struct {
	CanAddHomework   bool `json:"can_add_homework"`
	CanCreateSubject bool `json:"can_create_subject"`
}

// AllPermissions права хоста и кохоста
var AllPermissions = Permissions{CanAddHomework: true, CanCreateSubject: true}
