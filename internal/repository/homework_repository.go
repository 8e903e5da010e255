package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/repository/base"
	"github.com/xuanlam2007/scholium/internal/service"
)

type HomeworkRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewHomeworkRepository(pool *pgxpool.Pool, logger *zap.Logger) *HomeworkRepository {
	return &HomeworkRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// Create создаёт задание
func (r *HomeworkRepository) Create(ctx context.Context, hw *model.Homework) error {
	err := r.QueryRow(ctx, `
		INSERT INTO homework (scholium_id, subject_id, title, description, due_date, homework_type, start_time, end_time, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		hw.ScholiumID,
		hw.SubjectID,
		hw.Title,
		hw.Description,
		hw.DueDate,
		hw.HomeworkType,
		hw.StartTime,
		hw.EndTime,
		hw.CreatedBy,
	).Scan(&hw.ID, &hw.CreatedAt)
	if err != nil {
		return fmt.Errorf("create homework: %w", err)
	}

	r.logger.Info("Homework created",
		zap.Int64("homework_id", hw.ID),
		zap.Int64("scholium_id", hw.ScholiumID))
	return nil
}

// GetByID получает задание по ID
func (r *HomeworkRepository) GetByID(ctx context.Context, id int64) (*model.Homework, error) {
	var hw model.Homework
	err := r.QueryRow(ctx, `
		SELECT id, scholium_id, subject_id, title, description, due_date, homework_type, start_time, end_time, created_by, created_at
		FROM homework
		WHERE id = $1
	`, id).Scan(
		&hw.ID,
		&hw.ScholiumID,
		&hw.SubjectID,
		&hw.Title,
		&hw.Description,
		&hw.DueDate,
		&hw.HomeworkType,
		&hw.StartTime,
		&hw.EndTime,
		&hw.CreatedBy,
		&hw.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get homework by id: %w", err)
	}
	return &hw, nil
}

// ListByScholium задания группы с отметкой выполнения для пользователя
func (r *HomeworkRepository) ListByScholium(ctx context.Context, scholiumID int64, userID uuid.UUID) ([]*model.Homework, error) {
	rows, err := r.Query(ctx, `
		SELECT h.id, h.scholium_id, h.subject_id, h.title, h.description, h.due_date, h.homework_type,
		       h.start_time, h.end_time, h.created_by, h.created_at,
		       (c.homework_id IS NOT NULL) AS completed
		FROM homework h
		LEFT JOIN homework_completion c ON c.homework_id = h.id AND c.user_id = $2
		WHERE h.scholium_id = $1
		ORDER BY h.due_date, h.start_time NULLS LAST, h.id
	`, scholiumID, userID)
	if err != nil {
		return nil, fmt.Errorf("list homework: %w", err)
	}
	defer rows.Close()

	var result []*model.Homework
	for rows.Next() {
		var hw model.Homework
		err := rows.Scan(
			&hw.ID,
			&hw.ScholiumID,
			&hw.SubjectID,
			&hw.Title,
			&hw.Description,
			&hw.DueDate,
			&hw.HomeworkType,
			&hw.StartTime,
			&hw.EndTime,
			&hw.CreatedBy,
			&hw.CreatedAt,
			&hw.Completed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan homework: %w", err)
		}
		result = append(result, &hw)
	}
	return result, rows.Err()
}

// Update обновляет задание
func (r *HomeworkRepository) Update(ctx context.Context, hw *model.Homework) error {
	err := r.ExecOne(ctx, `
		UPDATE homework
		SET subject_id = $2, title = $3, description = $4, due_date = $5, homework_type = $6, start_time = $7, end_time = $8
		WHERE id = $1
	`, hw.ID, hw.SubjectID, hw.Title, hw.Description, hw.DueDate, hw.HomeworkType, hw.StartTime, hw.EndTime)
	if err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	return nil
}

// Delete удаляет задание вместе с отметками выполнения
func (r *HomeworkRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM homework WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete homework: %w", err)
	}
	return n > 0, nil
}

// ToggleCompletion переключает отметку выполнения, возвращает новое состояние
func (r *HomeworkRepository) ToggleCompletion(ctx context.Context, homeworkID int64, userID uuid.UUID) (bool, error) {
	var completed bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM homework_completion WHERE homework_id = $1 AND user_id = $2`, homeworkID, userID)
		if err != nil {
			return fmt.Errorf("clear completion: %w", err)
		}
		if tag.RowsAffected() > 0 {
			completed = false
			return nil
		}
		if _, err := tx.Exec(ctx, `INSERT INTO homework_completion (homework_id, user_id) VALUES ($1, $2)`, homeworkID, userID); err != nil {
			return fmt.Errorf("mark completion: %w", err)
		}
		completed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("toggle completion: %w", err)
	}
	return completed, nil
}

var _ service.HomeworkRepository = (*HomeworkRepository)(nil)
