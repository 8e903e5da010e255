package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/xuanlam2007/scholium/internal/model"
)

// Хранилища, нужные сервисам. Реализации: internal/repository (Postgres)
// и internal/repository/memory. Чтение отсутствующей записи возвращает nil, nil.

// SlotMutator получает текущее сохранённое значение сетки и возвращает новое.
// nil означает "ничего не писать".
type SlotMutator func(current []byte) ([]byte, error)

type ScholiumRepository interface {
	CreateWithHost(ctx context.Context, scholium *model.Scholium, host *model.Member) error
	GetByID(ctx context.Context, id int64) (*model.Scholium, error)
	GetByAccessDigest(ctx context.Context, digest string) (*model.Scholium, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Scholium, error)
	Rename(ctx context.Context, id int64, name string) error
	UpdateAccessID(ctx context.Context, id int64, encrypted, digest string) error
	Delete(ctx context.Context, id int64) (bool, error)
	// UpdateTimeSlots читает, изменяет и записывает сетку как одну операцию
	UpdateTimeSlots(ctx context.Context, id int64, fn SlotMutator) error
}

type MemberRepository interface {
	Get(ctx context.Context, scholiumID int64, userID uuid.UUID) (*model.Member, error)
	GetByID(ctx context.Context, memberID int64) (*model.Member, error)
	ListByScholium(ctx context.Context, scholiumID int64) ([]*model.Member, error)
	// Add возвращает false, если пользователь уже участник
	Add(ctx context.Context, member *model.Member) (bool, error)
	Delete(ctx context.Context, memberID int64) (bool, error)
	UpdatePermissions(ctx context.Context, memberID int64, perms model.Permissions) error
	SetCohost(ctx context.Context, memberID int64, isCohost bool, perms model.Permissions) error
	// TransferHost атомарно понижает текущего хоста и повышает нового
	TransferHost(ctx context.Context, scholiumID, fromMemberID, toMemberID int64, newHost uuid.UUID) error
}

type HomeworkRepository interface {
	Create(ctx context.Context, hw *model.Homework) error
	GetByID(ctx context.Context, id int64) (*model.Homework, error)
	// ListByScholium заполняет Completed для userID
	ListByScholium(ctx context.Context, scholiumID int64, userID uuid.UUID) ([]*model.Homework, error)
	Update(ctx context.Context, hw *model.Homework) error
	Delete(ctx context.Context, id int64) (bool, error)
	ToggleCompletion(ctx context.Context, homeworkID int64, userID uuid.UUID) (bool, error)
}

type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, id int64) (*model.Subject, error)
	ListByScholium(ctx context.Context, scholiumID int64) ([]*model.Subject, error)
	Update(ctx context.Context, subject *model.Subject) error
	Delete(ctx context.Context, id int64) (bool, error)
}
