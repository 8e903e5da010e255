package model

import "time"

// ChangeKind какая часть группы изменилась
type ChangeKind string

const (
	ChangeHomework    ChangeKind = "homework"
	ChangeSubject     ChangeKind = "subject"
	ChangeMember      ChangeKind = "member"
	ChangePermissions ChangeKind = "permissions"
	ChangeTimeSlots   ChangeKind = "timeslots"
	ChangeCompletion  ChangeKind = "completion"
	ChangeScholium    ChangeKind = "scholium"
	ChangeDeleted     ChangeKind = "scholium_deleted"

	// ChangeRefresh синтетическое событие клиента: могло измениться что угодно.
	// Сервер его не рассылает.
	ChangeRefresh ChangeKind = "refresh"
)

var publishable = map[ChangeKind]bool{
	ChangeHomework:    true,
	ChangeSubject:     true,
	ChangeMember:      true,
	ChangePermissions: true,
	ChangeTimeSlots:   true,
	ChangeCompletion:  true,
	ChangeScholium:    true,
	ChangeDeleted:     true,
}

// Publishable можно ли разослать событие этого типа
func (k ChangeKind) Publishable() bool {
	return publishable[k]
}

// AffectsMembership нужно ли перепроверить членство после события
func (k ChangeKind) AffectsMembership() bool {
	return k == ChangeMember || k == ChangePermissions || k == ChangeRefresh
}

// ChangeEvent сигнал "перечитай текущее состояние"; содержимого изменения в нём нет
type ChangeEvent struct {
	ScholiumID int64      `json:"scholiumId"`
	Kind       ChangeKind `json:"type"`
	Timestamp  time.Time  `json:"-"`
}

// NewChangeEvent создаёт событие с текущим временем
func NewChangeEvent(scholiumID int64, kind ChangeKind) ChangeEvent {
	return ChangeEvent{ScholiumID: scholiumID, Kind: kind, Timestamp: time.Now()}
}
