package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	upcomingLimit  = 5
)

// HomeworkInput поля задания, которые задаёт пользователь
type HomeworkInput struct {
	SubjectID    *int64
	Title        string
	Description  string
	DueDate      time.Time
	HomeworkType model.HomeworkType
	StartTime    *string
	EndTime      *string
}

func (in HomeworkInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || in.DueDate.IsZero() {
		return fmt.Errorf("title and due date are required: %w", ErrInvalidInput)
	}
	if in.HomeworkType != "" && !in.HomeworkType.Valid() {
		return fmt.Errorf("unknown homework type %q: %w", in.HomeworkType, ErrInvalidInput)
	}
	for _, v := range []*string{in.StartTime, in.EndTime} {
		if v == nil {
			continue
		}
		if _, err := model.ParseClock(*v); err != nil {
			return fmt.Errorf("homework time: %w", ErrInvalidTimeFormat)
		}
	}
	return nil
}

func (in HomeworkInput) apply(hw *model.Homework) {
	hw.SubjectID = in.SubjectID
	hw.Title = strings.TrimSpace(in.Title)
	hw.Description = in.Description
	hw.DueDate = in.DueDate
	hw.HomeworkType = in.HomeworkType
	if hw.HomeworkType == "" {
		hw.HomeworkType = model.HomeworkTypeHomework
	}
	hw.StartTime = in.StartTime
	hw.EndTime = in.EndTime
}

type HomeworkService struct {
	homework HomeworkRepository
	subjects SubjectRepository
	access   *access.Resolver
	notifier notifier.Notifier
	logger   *zap.Logger
}

func NewHomeworkService(homework HomeworkRepository, subjects SubjectRepository, resolver *access.Resolver, n notifier.Notifier, logger *zap.Logger) *HomeworkService {
	return &HomeworkService{
		homework: homework,
		subjects: subjects,
		access:   resolver,
		notifier: n,
		logger:   logger,
	}
}

// List задания группы с отметкой выполнения пользователя
func (s *HomeworkService) List(ctx context.Context, scholiumID int64, actor uuid.UUID) ([]*model.Homework, error) {
	if _, err := s.access.RequireMember(ctx, scholiumID, actor); err != nil {
		return nil, err
	}
	list, err := s.homework.ListByScholium(ctx, scholiumID, actor)
	if err != nil {
		return nil, fmt.Errorf("list homework: %w", err)
	}
	return list, nil
}

// Upcoming невыполненные задания на ближайшие 7 дней, не больше пяти
func (s *HomeworkService) Upcoming(ctx context.Context, scholiumID int64, actor uuid.UUID, now time.Time) ([]*model.Homework, error) {
	list, err := s.List(ctx, scholiumID, actor)
	if err != nil {
		return nil, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	until := today.Add(upcomingWindow)

	var result []*model.Homework
	for _, hw := range list {
		if hw.Completed || hw.DueDate.Before(today) || hw.DueDate.After(until) {
			continue
		}
		result = append(result, hw)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	if len(result) > upcomingLimit {
		result = result[:upcomingLimit]
	}
	return result, nil
}

func (s *HomeworkService) checkSubject(ctx context.Context, scholiumID int64, subjectID *int64) error {
	if subjectID == nil {
		return nil
	}
	subject, err := s.subjects.GetByID(ctx, *subjectID)
	if err != nil {
		return fmt.Errorf("get subject: %w", err)
	}
	if subject == nil || subject.ScholiumID != scholiumID {
		return fmt.Errorf("subject %d: %w", *subjectID, ErrInvalidInput)
	}
	return nil
}

// Create добавляет задание
func (s *HomeworkService) Create(ctx context.Context, scholiumID int64, actor uuid.UUID, in HomeworkInput) (*model.Homework, error) {
	if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanAddHomework); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkSubject(ctx, scholiumID, in.SubjectID); err != nil {
		return nil, err
	}

	hw := &model.Homework{ScholiumID: scholiumID, CreatedBy: actor}
	in.apply(hw)
	if err := s.homework.Create(ctx, hw); err != nil {
		return nil, fmt.Errorf("create homework: %w", storeErr(err))
	}

	s.notifier.Publish(ctx, scholiumID, model.ChangeHomework)
	return hw, nil
}

func (s *HomeworkService) load(ctx context.Context, scholiumID, homeworkID int64) (*model.Homework, error) {
	hw, err := s.homework.GetByID(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("get homework: %w", err)
	}
	if hw == nil || hw.ScholiumID != scholiumID {
		return nil, ErrNotFound
	}
	return hw, nil
}

// Update изменяет задание
func (s *HomeworkService) Update(ctx context.Context, scholiumID, homeworkID int64, actor uuid.UUID, in HomeworkInput) (*model.Homework, error) {
	if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanAddHomework); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	hw, err := s.load(ctx, scholiumID, homeworkID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubject(ctx, scholiumID, in.SubjectID); err != nil {
		return nil, err
	}

	in.apply(hw)
	if err := s.homework.Update(ctx, hw); err != nil {
		return nil, storeErr(err)
	}

	s.notifier.Publish(ctx, scholiumID, model.ChangeHomework)
	return hw, nil
}

// Delete удаляет задание
func (s *HomeworkService) Delete(ctx context.Context, scholiumID, homeworkID int64, actor uuid.UUID) error {
	if _, err := s.access.Require(ctx, scholiumID, actor, access.Role.CanAddHomework); err != nil {
		return err
	}
	if _, err := s.load(ctx, scholiumID, homeworkID); err != nil {
		return err
	}
	deleted, err := s.homework.Delete(ctx, homeworkID)
	if err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	if deleted {
		s.notifier.Publish(ctx, scholiumID, model.ChangeHomework)
	}
	return nil
}

// ToggleCompletion отмечает задание выполненным или снимает отметку
func (s *HomeworkService) ToggleCompletion(ctx context.Context, scholiumID, homeworkID int64, actor uuid.UUID) (bool, error) {
	if _, err := s.access.RequireMember(ctx, scholiumID, actor); err != nil {
		return false, err
	}
	if _, err := s.load(ctx, scholiumID, homeworkID); err != nil {
		return false, err
	}

	completed, err := s.homework.ToggleCompletion(ctx, homeworkID, actor)
	if err != nil {
		return false, storeErr(err)
	}

	s.logger.Debug("Homework completion toggled",
		zap.Int64("homework_id", homeworkID),
		zap.String("user_id", actor.String()),
		zap.Bool("completed", completed))
	s.notifier.Publish(ctx, scholiumID, model.ChangeCompletion)
	return completed, nil
}
