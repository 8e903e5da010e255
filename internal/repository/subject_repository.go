package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/repository/base"
	"github.com/xuanlam2007/scholium/internal/service"
)

type SubjectRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewSubjectRepository(pool *pgxpool.Pool, logger *zap.Logger) *SubjectRepository {
	return &SubjectRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// Create создаёт новый предмет
func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	query := `
		INSERT INTO subjects (scholium_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, subject.ScholiumID, subject.Name, subject.Color).
		Scan(&subject.ID, &subject.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert subject into DB",
			zap.Int64("scholium_id", subject.ScholiumID),
			zap.String("name", subject.Name),
			zap.Error(err))
		return fmt.Errorf("create subject: %w", err)
	}

	r.logger.Info("Subject inserted successfully",
		zap.Int64("subject_id", subject.ID),
		zap.Int64("scholium_id", subject.ScholiumID),
		zap.String("name", subject.Name))

	return nil
}

// GetByID получает предмет по ID
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*model.Subject, error) {
	query := `
		SELECT id, scholium_id, name, color, created_at
		FROM subjects
		WHERE id = $1
	`

	var subject model.Subject
	err := r.QueryRow(ctx, query, id).Scan(
		&subject.ID,
		&subject.ScholiumID,
		&subject.Name,
		&subject.Color,
		&subject.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by id: %w", err)
	}

	return &subject, nil
}

// ListByScholium предметы группы по алфавиту
func (r *SubjectRepository) ListByScholium(ctx context.Context, scholiumID int64) ([]*model.Subject, error) {
	rows, err := r.Query(ctx, `
		SELECT id, scholium_id, name, color, created_at
		FROM subjects
		WHERE scholium_id = $1
		ORDER BY name
	`, scholiumID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.ScholiumID, &s.Name, &s.Color, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}

// Update обновляет предмет
func (r *SubjectRepository) Update(ctx context.Context, subject *model.Subject) error {
	err := r.ExecOne(ctx, `UPDATE subjects SET name = $2, color = $3 WHERE id = $1`,
		subject.ID, subject.Name, subject.Color)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete удаляет предмет; у заданий subject_id обнуляется
func (r *SubjectRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete subject: %w", err)
	}
	return n > 0, nil
}

var _ service.SubjectRepository = (*SubjectRepository)(nil)
