package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/repository/base"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

const maxScholiumNameLength = 100

type ScholiumService struct {
	scholiums ScholiumRepository
	members   MemberRepository
	access    *access.Resolver
	cipher    *AccessIDCipher
	notifier  notifier.Notifier
	logger    *zap.Logger
}

func NewScholiumService(
	scholiums ScholiumRepository,
	members MemberRepository,
	resolver *access.Resolver,
	cipher *AccessIDCipher,
	n notifier.Notifier,
	logger *zap.Logger,
) *ScholiumService {
	return &ScholiumService{
		scholiums: scholiums,
		members:   members,
		access:    resolver,
		cipher:    cipher,
		notifier:  n,
		logger:    logger,
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxScholiumNameLength {
		return "", fmt.Errorf("scholium name must be 1-%d characters: %w", maxScholiumNameLength, ErrInvalidInput)
	}
	return name, nil
}

func (s *ScholiumService) newAccessID() (plain, encrypted, digest string, err error) {
	plain, err = s.cipher.Generate()
	if err != nil {
		return "", "", "", err
	}
	encrypted, err = s.cipher.Encrypt(plain)
	if err != nil {
		return "", "", "", err
	}
	return plain, encrypted, s.cipher.Digest(plain), nil
}

// Create создаёт группу; создатель становится хостом со всеми правами
func (s *ScholiumService) Create(ctx context.Context, actor uuid.UUID, name string) (*model.ScholiumDetails, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	plain, encrypted, digest, err := s.newAccessID()
	if err != nil {
		return nil, fmt.Errorf("create access id: %w", err)
	}
	slots, err := timeslot.Encode(timeslot.Defaults())
	if err != nil {
		return nil, err
	}

	scholium := &model.Scholium{
		HostUserID:        actor,
		Name:              name,
		EncryptedAccessID: encrypted,
		AccessIDDigest:    digest,
		TimeSlots:         slots,
	}
	host := &model.Member{
		UserID:           actor,
		IsHost:           true,
		CanAddHomework:   true,
		CanCreateSubject: true,
	}
	if err := s.scholiums.CreateWithHost(ctx, scholium, host); err != nil {
		return nil, fmt.Errorf("create scholium: %w", err)
	}

	s.logger.Info("Scholium created",
		zap.Int64("scholium_id", scholium.ID),
		zap.String("host_user_id", actor.String()))

	return &model.ScholiumDetails{
		Scholium: *scholium,
		AccessID: plain,
		Slots:    timeslot.Defaults(),
		Role:     access.RoleOf(scholium.ID, actor, host).Model(),
	}, nil
}

// Join вступление по коду доступа; новый участник без прав
func (s *ScholiumService) Join(ctx context.Context, actor uuid.UUID, accessID string) (*model.Scholium, error) {
	accessID = strings.TrimSpace(accessID)
	if !ValidAccessID(accessID) {
		return nil, ErrInvalidAccessID
	}

	scholium, err := s.scholiums.GetByAccessDigest(ctx, s.cipher.Digest(accessID))
	if err != nil {
		return nil, fmt.Errorf("find scholium: %w", err)
	}
	if scholium == nil {
		return nil, ErrInvalidAccessID
	}

	added, err := s.members.Add(ctx, &model.Member{ScholiumID: scholium.ID, UserID: actor})
	if err != nil {
		if errors.Is(err, base.ErrNotFound) {
			return nil, ErrInvalidAccessID
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	if added {
		s.logger.Info("User joined scholium",
			zap.Int64("scholium_id", scholium.ID),
			zap.String("user_id", actor.String()))
		s.notifier.Publish(ctx, scholium.ID, model.ChangeMember)
	}
	return scholium, nil
}

// ListForUser группы пользователя
func (s *ScholiumService) ListForUser(ctx context.Context, actor uuid.UUID) ([]*model.Scholium, error) {
	scholiums, err := s.scholiums.ListByUser(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list scholiums: %w", err)
	}
	return scholiums, nil
}

// Details группа с расшифрованным кодом, сеткой и ролью пользователя
func (s *ScholiumService) Details(ctx context.Context, scholiumID int64, actor uuid.UUID) (*model.ScholiumDetails, error) {
	role, err := s.access.RequireMember(ctx, scholiumID, actor)
	if err != nil {
		return nil, err
	}
	scholium, err := s.scholiums.GetByID(ctx, scholiumID)
	if err != nil {
		return nil, fmt.Errorf("get scholium: %w", err)
	}
	if scholium == nil {
		return nil, ErrNotFound
	}

	plain, err := s.cipher.Decrypt(scholium.EncryptedAccessID)
	if err != nil {
		s.logger.Error("Failed to decrypt access id",
			zap.Int64("scholium_id", scholiumID),
			zap.Error(err))
		plain = ""
	}
	slots, _ := timeslot.Decode(scholium.TimeSlots)

	return &model.ScholiumDetails{
		Scholium: *scholium,
		AccessID: plain,
		Slots:    slots,
		Role:     role.Model(),
	}, nil
}

// Rename меняет название (только хост)
func (s *ScholiumService) Rename(ctx context.Context, scholiumID int64, actor uuid.UUID, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireHost(ctx, scholiumID, actor); err != nil {
		return err
	}
	if err := s.scholiums.Rename(ctx, scholiumID, name); err != nil {
		return storeErr(err)
	}
	s.notifier.Publish(ctx, scholiumID, model.ChangeScholium)
	return nil
}

// RenewAccessID выпускает новый код доступа (только хост); старый перестаёт работать
func (s *ScholiumService) RenewAccessID(ctx context.Context, scholiumID int64, actor uuid.UUID) (string, error) {
	if _, err := s.access.RequireHost(ctx, scholiumID, actor); err != nil {
		return "", err
	}

	plain, encrypted, digest, err := s.newAccessID()
	if err != nil {
		return "", fmt.Errorf("renew access id: %w", err)
	}
	if err := s.scholiums.UpdateAccessID(ctx, scholiumID, encrypted, digest); err != nil {
		return "", storeErr(err)
	}

	s.logger.Info("Access id renewed", zap.Int64("scholium_id", scholiumID))
	s.notifier.Publish(ctx, scholiumID, model.ChangeScholium)
	return plain, nil
}

// Delete удаляет группу со всем содержимым (только хост)
func (s *ScholiumService) Delete(ctx context.Context, scholiumID int64, actor uuid.UUID) error {
	if _, err := s.access.RequireHost(ctx, scholiumID, actor); err != nil {
		return err
	}
	deleted, err := s.scholiums.Delete(ctx, scholiumID)
	if err != nil {
		return fmt.Errorf("delete scholium: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.logger.Info("Scholium deleted",
		zap.Int64("scholium_id", scholiumID),
		zap.String("actor", actor.String()))
	s.notifier.Publish(ctx, scholiumID, model.ChangeDeleted)
	return nil
}
