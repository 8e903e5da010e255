package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

const defaultSubjectColor = "#3b82f6"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type SubjectService struct {
	subjects SubjectRepository
	access   *access.Resolver
	notifier notifier.Notifier
	logger   *zap.Logger
}

func NewSubjectService(subjects SubjectRepository, resolver *access.Resolver, n notifier.Notifier, logger *zap.Logger) *SubjectService {
	return &SubjectService{
		subjects: subjects,
		access:   resolver,
		notifier: n,
		logger:   logger,
	}
}

func normalizeSubject(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("subject name is required: %w", ErrInvalidInput)
	}
	if color == "" {
		color = defaultSubjectColor
	}
	if !colorPattern.MatchString(color) {
		return "", "", fmt.Errorf("subject color %q: %w", color, ErrInvalidInput)
	}
	return name, color, nil
}

// List предметы группы
func (s *SubjectService) List(ctx context.Context, scholiumID int64, actor uuid.UUID) ([]*model.Subject, error) {
	if _, err := s.access.RequireMember(ctx, scholiumID, actor); err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListByScholium(ctx, scholiumID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Create создаёт предмет (хост или can_create_subject)
func (s *SubjectService) Create(ctx context.Context, scholiumID int64, actor uuid.UUID, name, color string) (*model.Subject, error) {
	if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanCreateSubject); err != nil {
		return nil, err
	}
	name, color, err := normalizeSubject(name, color)
	if err != nil {
		return nil, err
	}

	subject := &model.Subject{ScholiumID: scholiumID, Name: name, Color: color}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", storeErr(err))
	}
	s.notifier.Publish(ctx, scholiumID, model.ChangeSubject)
	return subject, nil
}

func (s *SubjectService) load(ctx context.Context, scholiumID, subjectID int64) (*model.Subject, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if subject == nil || subject.ScholiumID != scholiumID {
		return nil, ErrNotFound
	}
	return subject, nil
}

// Update переименовывает предмет или меняет цвет
func (s *SubjectService) Update(ctx context.Context, scholiumID, subjectID int64, actor uuid.UUID, name, color string) (*model.Subject, error) {
	if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanCreateSubject); err != nil {
		return nil, err
	}
	name, color, err := normalizeSubject(name, color)
	if err != nil {
		return nil, err
	}
	subject, err := s.load(ctx, scholiumID, subjectID)
	if err != nil {
		return nil, err
	}

	subject.Name, subject.Color = name, color
	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, storeErr(err)
	}
	s.notifier.Publish(ctx, scholiumID, model.ChangeSubject)
	return subject, nil
}

// Delete удаляет предмет (только хост)
func (s *SubjectService) Delete(ctx context.Context, scholiumID, subjectID int64, actor uuid.UUID) error {
	if _, err := s.access.RequireHost(ctx, scholiumID, actor); err != nil {
		return err
	}
	if _, err := s.load(ctx, scholiumID, subjectID); err != nil {
		return err
	}
	deleted, err := s.subjects.Delete(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if deleted {
		s.logger.Info("Subject deleted",
			zap.Int64("scholium_id", scholiumID),
			zap.Int64("subject_id", subjectID))
		s.notifier.Publish(ctx, scholiumID, model.ChangeSubject)
	}
	return nil
}
