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

type ScholiumRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewScholiumRepository(pool *pgxpool.Pool, logger *zap.Logger) *ScholiumRepository {
	return &ScholiumRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

const scholiumColumns = `id, host_user_id, name, encrypted_access_id, access_id_digest, time_slots, created_at, updated_at`

func scanScholium(row pgx.Row) (*model.Scholium, error) {
	var s model.Scholium
	err := row.Scan(
		&s.ID,
		&s.HostUserID,
		&s.Name,
		&s.EncryptedAccessID,
		&s.AccessIDDigest,
		&s.TimeSlots,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateWithHost создаёт группу и её хоста одной транзакцией
func (r *ScholiumRepository) CreateWithHost(ctx context.Context, s *model.Scholium, host *model.Member) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO scholiums (host_user_id, name, encrypted_access_id, access_id_digest, time_slots)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, s.HostUserID, s.Name, s.EncryptedAccessID, s.AccessIDDigest, s.TimeSlots,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert scholium: %w", err)
		}

		host.ScholiumID = s.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO scholium_members (scholium_id, user_id, is_host, is_cohost, can_add_homework, can_create_subject)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, joined_at
		`, host.ScholiumID, host.UserID, host.IsHost, host.IsCohost, host.CanAddHomework, host.CanCreateSubject,
		).Scan(&host.ID, &host.JoinedAt)
		if err != nil {
			return fmt.Errorf("insert host member: %w", err)
		}

		r.logger.Info("Scholium created",
			zap.Int64("scholium_id", s.ID),
			zap.String("host_user_id", s.HostUserID.String()))
		return nil
	})
}

// GetByID получает группу по ID
func (r *ScholiumRepository) GetByID(ctx context.Context, id int64) (*model.Scholium, error) {
	s, err := scanScholium(r.QueryRow(ctx, `SELECT `+scholiumColumns+` FROM scholiums WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get scholium by id: %w", err)
	}
	return s, nil
}

// GetByAccessDigest ищет группу по отпечатку кода доступа
func (r *ScholiumRepository) GetByAccessDigest(ctx context.Context, digest string) (*model.Scholium, error) {
	s, err := scanScholium(r.QueryRow(ctx, `SELECT `+scholiumColumns+` FROM scholiums WHERE access_id_digest = $1`, digest))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get scholium by access digest: %w", err)
	}
	return s, nil
}

// ListByUser группы, в которых состоит пользователь
func (r *ScholiumRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Scholium, error) {
	rows, err := r.Query(ctx, `
		SELECT s.id, s.host_user_id, s.name, s.encrypted_access_id, s.access_id_digest, s.time_slots, s.created_at, s.updated_at
		FROM scholiums s
		JOIN scholium_members m ON m.scholium_id = s.id
		WHERE m.user_id = $1
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list scholiums by user: %w", err)
	}
	defer rows.Close()

	var result []*model.Scholium
	for rows.Next() {
		s, err := scanScholium(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scholium: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Rename меняет название группы
func (r *ScholiumRepository) Rename(ctx context.Context, id int64, name string) error {
	err := r.ExecOne(ctx, `UPDATE scholiums SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename scholium: %w", err)
	}
	return nil
}

// UpdateAccessID сохраняет новый зашифрованный код доступа
func (r *ScholiumRepository) UpdateAccessID(ctx context.Context, id int64, encrypted, digest string) error {
	err := r.ExecOne(ctx, `
		UPDATE scholiums SET encrypted_access_id = $2, access_id_digest = $3, updated_at = NOW()
		WHERE id = $1
	`, id, encrypted, digest)
	if err != nil {
		return fmt.Errorf("update access id: %w", err)
	}
	return nil
}

// Delete удаляет группу; участники, задания и предметы удаляются каскадом
func (r *ScholiumRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM scholiums WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete scholium: %w", err)
	}
	return n > 0, nil
}

// UpdateTimeSlots блокирует строку группы на время чтения-проверки-записи
func (r *ScholiumRepository) UpdateTimeSlots(ctx context.Context, id int64, fn service.SlotMutator) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var current []byte
		err := tx.QueryRow(ctx, `SELECT time_slots FROM scholiums WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if base.IsNotFound(err) {
				return base.ErrNotFound
			}
			return fmt.Errorf("lock time slots: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE scholiums SET time_slots = $2, updated_at = NOW() WHERE id = $1`, id, next); err != nil {
			return fmt.Errorf("write time slots: %w", err)
		}
		return nil
	})
}

var _ service.ScholiumRepository = (*ScholiumRepository)(nil)
