// Package access вычисляет права пользователя в группе.
// Все проверки "хост ли это" проходят через Resolver.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/xuanlam2007/scholium/internal/model"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotMember        = errors.New("not a member of this scholium")
)

// Role права пользователя в конкретной группе на момент проверки
type Role struct {
	ScholiumID int64
	UserID     uuid.UUID
	MemberID   int64
	IsMember   bool
	IsHost     bool
	IsCohost   bool

	canAddHomework   bool
	canCreateSubject bool
}

// RoleOf строит роль по записи участника; nil означает "не участник"
func RoleOf(scholiumID int64, userID uuid.UUID, m *model.Member) Role {
	r := Role{ScholiumID: scholiumID, UserID: userID}
	if m == nil {
		return r
	}
	r.MemberID = m.ID
	r.IsMember = true
	r.IsHost = m.IsHost
	r.IsCohost = m.IsCohost && !m.IsHost
	r.canAddHomework = m.CanAddHomework
	r.canCreateSubject = m.CanCreateSubject
	return r
}

// Elevated хост или кохост
func (r Role) Elevated() bool {
	return r.IsHost || r.IsCohost
}

func (r Role) CanAddHomework() bool {
	return r.IsMember && (r.Elevated() || r.canAddHomework)
}

func (r Role) CanCreateSubject() bool {
	return r.IsMember && (r.Elevated() || r.canCreateSubject)
}

// CanEditTimeSlots сетку меняет только хост
func (r Role) CanEditTimeSlots() bool {
	return r.IsHost
}

// Model сериализуемый вид роли
func (r Role) Model() model.MemberRole {
	return model.MemberRole{
		IsHost:           r.IsHost,
		IsCohost:         r.IsCohost,
		CanAddHomework:   r.CanAddHomework(),
		CanCreateSubject: r.CanCreateSubject(),
	}
}

// MemberFinder то, что нужно Resolver от хранилища участников
type MemberFinder interface {
	Get(ctx context.Context, scholiumID int64, userID uuid.UUID) (*model.Member, error)
}

// Resolver читает свежую роль из хранилища на каждый вызов
type Resolver struct {
	members MemberFinder
}

func NewResolver(members MemberFinder) *Resolver {
	return &Resolver{members: members}
}

// Resolve роль пользователя; не участник не является ошибкой
func (r *Resolver) Resolve(ctx context.Context, scholiumID int64, userID uuid.UUID) (Role, error) {
	m, err := r.members.Get(ctx, scholiumID, userID)
	if err != nil {
		return Role{}, fmt.Errorf("resolve role: %w", err)
	}
	return RoleOf(scholiumID, userID, m), nil
}

// RequireMember роль участника или ErrNotMember
func (r *Resolver) RequireMember(ctx context.Context, scholiumID int64, userID uuid.UUID) (Role, error) {
	role, err := r.Resolve(ctx, scholiumID, userID)
	if err != nil {
		return Role{}, err
	}
	if !role.IsMember {
		return role, ErrNotMember
	}
	return role, nil
}

// RequireHost роль хоста или ErrPermissionDenied
func (r *Resolver) RequireHost(ctx context.Context, scholiumID int64, userID uuid.UUID) (Role, error) {
	role, err := r.Resolve(ctx, scholiumID, userID)
	if err != nil {
		return Role{}, err
	}
	if !role.IsHost {
		return role, ErrPermissionDenied
	}
	return role, nil
}

// Require роль, для которой allowed вернул true, иначе ErrPermissionDenied
func (r *Resolver) Require(ctx context.Context, scholiumID int64, userID uuid.UUID, allowed func(Role) bool) (Role, error) {
	role, err := r.Resolve(ctx, scholiumID, userID)
	if err != nil {
		return Role{}, err
	}
	if !allowed(role) {
		return role, ErrPermissionDenied
	}
	return role, nil
}
