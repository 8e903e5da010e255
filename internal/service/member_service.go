package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

type MemberService struct {
	members  MemberRepository
	access   *access.Resolver
	notifier notifier.Notifier
	logger   *zap.Logger
}

func NewMemberService(members MemberRepository, resolver *access.Resolver, n notifier.Notifier, logger *zap.Logger) *MemberService {
	return &MemberService{
		members:  members,
		access:   resolver,
		notifier: n,
		logger:   logger,
	}
}

// CheckMembership состоит ли пользователь в группе прямо сейчас. Без побочных эффектов.
func (s *MemberService) CheckMembership(ctx context.Context, scholiumID int64, userID uuid.UUID) (bool, error) {
	role, err := s.access.Resolve(ctx, scholiumID, userID)
	if err != nil {
		return false, err
	}
	return role.IsMember, nil
}

// Role права пользователя в группе
func (s *MemberService) Role(ctx context.Context, scholiumID int64, userID uuid.UUID) (access.Role, error) {
	return s.access.Resolve(ctx, scholiumID, userID)
}

// List участники группы (для участников)
func (s *MemberService) List(ctx context.Context, scholiumID int64, actor uuid.UUID) ([]*model.Member, error) {
	if _, err := s.access.RequireMember(ctx, scholiumID, actor); err != nil {
		return nil, err
	}
	members, err := s.members.ListByScholium(ctx, scholiumID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// ============ Действия хоста ============

// targetForHost загружает участника и проверяет, что actor хост его группы,
// а сам участник не хост
func (s *MemberService) targetForHost(ctx context.Context, memberID int64, actor uuid.UUID) (*model.Member, error) {
	target, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if _, err := s.access.RequireHost(ctx, target.ScholiumID, actor); err != nil {
		return nil, err
	}
	if target.IsHost {
		return nil, ErrCannotModifyHost
	}
	return target, nil
}

// Remove исключает участника. Уже исключённый участник считается успехом.
func (s *MemberService) Remove(ctx context.Context, memberID int64, actor uuid.UUID) error {
	target, err := s.targetForHost(ctx, memberID, actor)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	deleted, err := s.members.Delete(ctx, memberID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if !deleted {
		return nil
	}

	s.logger.Info("Member removed",
		zap.Int64("scholium_id", target.ScholiumID),
		zap.Int64("member_id", memberID),
		zap.String("user_id", target.UserID.String()))
	s.notifier.Publish(ctx, target.ScholiumID, model.ChangeMember)
	return nil
}

// UpdatePermissions меняет права участника (только хост, не для хоста)
func (s *MemberService) UpdatePermissions(ctx context.Context, memberID int64, actor uuid.UUID, perms model.Permissions) error {
	target, err := s.targetForHost(ctx, memberID, actor)
	if err != nil {
		return err
	}
	if err := s.members.UpdatePermissions(ctx, memberID, perms); err != nil {
		return storeErr(err)
	}

	s.logger.Info("Member permissions updated",
		zap.Int64("scholium_id", target.ScholiumID),
		zap.Int64("member_id", memberID),
		zap.Bool("can_add_homework", perms.CanAddHomework),
		zap.Bool("can_create_subject", perms.CanCreateSubject))
	s.notifier.Publish(ctx, target.ScholiumID, model.ChangePermissions)
	return nil
}

// SetCohost назначает или снимает кохоста (только хост).
// Назначение выдаёт все права, снятие права не трогает.
func (s *MemberService) SetCohost(ctx context.Context, memberID int64, actor uuid.UUID, isCohost bool) error {
	target, err := s.targetForHost(ctx, memberID, actor)
	if err != nil {
		return err
	}

	perms := model.Permissions{CanAddHomework: target.CanAddHomework, CanCreateSubject: target.CanCreateSubject}
	if isCohost {
		perms = model.AllPermissions
	}
	if err := s.members.SetCohost(ctx, memberID, isCohost, perms); err != nil {
		return storeErr(err)
	}

	s.logger.Info("Cohost status changed",
		zap.Int64("scholium_id", target.ScholiumID),
		zap.Int64("member_id", memberID),
		zap.Bool("is_cohost", isCohost))
	s.notifier.Publish(ctx, target.ScholiumID, model.ChangePermissions)
	return nil
}

// ToggleCohost инвертирует статус кохоста
func (s *MemberService) ToggleCohost(ctx context.Context, memberID int64, actor uuid.UUID) (bool, error) {
	target, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return false, fmt.Errorf("get member: %w", err)
	}
	if target == nil {
		return false, ErrNotFound
	}
	next := !target.IsCohost
	if err := s.SetCohost(ctx, memberID, actor, next); err != nil {
		return false, err
	}
	return next, nil
}

// TransferHost передаёт роль хоста другому участнику.
// Старый хост становится обычным участником, новый получает все права.
func (s *MemberService) TransferHost(ctx context.Context, scholiumID int64, actor, newHost uuid.UUID) error {
	current, err := s.access.RequireHost(ctx, scholiumID, actor)
	if err != nil {
		return err
	}
	if newHost == actor {
		return nil
	}

	next, err := s.access.Resolve(ctx, scholiumID, newHost)
	if err != nil {
		return err
	}
	if !next.IsMember {
		return fmt.Errorf("new host must be a member: %w", ErrNotFound)
	}

	if err := s.members.TransferHost(ctx, scholiumID, current.MemberID, next.MemberID, newHost); err != nil {
		return storeErr(err)
	}

	s.logger.Info("Host role transferred",
		zap.Int64("scholium_id", scholiumID),
		zap.String("from_user_id", actor.String()),
		zap.String("to_user_id", newHost.String()))
	s.notifier.Publish(ctx, scholiumID, model.ChangeMember)
	return nil
}

// ============ Действия участника ============

// Quit выход из группы; хост выйти не может
func (s *MemberService) Quit(ctx context.Context, scholiumID int64, actor uuid.UUID) error {
	role, err := s.access.RequireMember(ctx, scholiumID, actor)
	if err != nil {
		return err
	}
	if role.IsHost {
		return ErrHostCannotQuit
	}

	if _, err := s.members.Delete(ctx, role.MemberID); err != nil {
		return fmt.Errorf("quit scholium: %w", err)
	}

	s.logger.Info("Member quit",
		zap.Int64("scholium_id", scholiumID),
		zap.String("user_id", actor.String()))
	s.notifier.Publish(ctx, scholiumID, model.ChangeMember)
	return nil
}
