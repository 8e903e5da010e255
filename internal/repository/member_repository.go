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

type MemberRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewMemberRepository(pool *pgxpool.Pool, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

const memberColumns = `id, scholium_id, user_id, is_host, is_cohost, can_add_homework, can_create_subject, joined_at`

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	err := row.Scan(
		&m.ID,
		&m.ScholiumID,
		&m.UserID,
		&m.IsHost,
		&m.IsCohost,
		&m.CanAddHomework,
		&m.CanCreateSubject,
		&m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get участник группы по пользователю
func (r *MemberRepository) Get(ctx context.Context, scholiumID int64, userID uuid.UUID) (*model.Member, error) {
	m, err := scanMember(r.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM scholium_members
		WHERE scholium_id = $1 AND user_id = $2
	`, scholiumID, userID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// GetByID участник по ID записи
func (r *MemberRepository) GetByID(ctx context.Context, memberID int64) (*model.Member, error) {
	m, err := scanMember(r.QueryRow(ctx, `SELECT `+memberColumns+` FROM scholium_members WHERE id = $1`, memberID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member by id: %w", err)
	}
	return m, nil
}

// ListByScholium все участники группы, хост первым
func (r *MemberRepository) ListByScholium(ctx context.Context, scholiumID int64) ([]*model.Member, error) {
	rows, err := r.Query(ctx, `
		SELECT `+memberColumns+` FROM scholium_members
		WHERE scholium_id = $1
		ORDER BY is_host DESC, is_cohost DESC, joined_at
	`, scholiumID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var result []*model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// Add добавляет участника; повторное вступление ничего не меняет
func (r *MemberRepository) Add(ctx context.Context, m *model.Member) (bool, error) {
	err := r.QueryRow(ctx, `
		INSERT INTO scholium_members (scholium_id, user_id, is_host, is_cohost, can_add_homework, can_create_subject)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scholium_id, user_id) DO NOTHING
		RETURNING id, joined_at
	`, m.ScholiumID, m.UserID, m.IsHost, m.IsCohost, m.CanAddHomework, m.CanCreateSubject,
	).Scan(&m.ID, &m.JoinedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("add member: %w", err)
	}
	return true, nil
}

// Delete удаляет участника
func (r *MemberRepository) Delete(ctx context.Context, memberID int64) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM scholium_members WHERE id = $1`, memberID)
	if err != nil {
		return false, fmt.Errorf("delete member: %w", err)
	}
	return n > 0, nil
}

// UpdatePermissions меняет права не-хоста
func (r *MemberRepository) UpdatePermissions(ctx context.Context, memberID int64, perms model.Permissions) error {
	err := r.ExecOne(ctx, `
		UPDATE scholium_members SET can_add_homework = $2, can_create_subject = $3
		WHERE id = $1 AND NOT is_host
	`, memberID, perms.CanAddHomework, perms.CanCreateSubject)
	if err != nil {
		return fmt.Errorf("update permissions: %w", err)
	}
	return nil
}

// SetCohost назначает или снимает кохоста
func (r *MemberRepository) SetCohost(ctx context.Context, memberID int64, isCohost bool, perms model.Permissions) error {
	err := r.ExecOne(ctx, `
		UPDATE scholium_members SET is_cohost = $2, can_add_homework = $3, can_create_subject = $4
		WHERE id = $1 AND NOT is_host
	`, memberID, isCohost, perms.CanAddHomework, perms.CanCreateSubject)
	if err != nil {
		return fmt.Errorf("set cohost: %w", err)
	}
	return nil
}

// TransferHost передаёт роль хоста. Снятие старого хоста идёт первым,
// иначе сработает уникальный индекс "один хост на группу".
func (r *MemberRepository) TransferHost(ctx context.Context, scholiumID, fromMemberID, toMemberID int64, newHost uuid.UUID) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		// строка группы блокируется первой, как в UpdateTimeSlots
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM scholiums WHERE id = $1 FOR UPDATE`, scholiumID).Scan(&locked); err != nil {
			if base.IsNotFound(err) {
				return base.ErrNotFound
			}
			return fmt.Errorf("lock scholium: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE scholium_members SET is_host = FALSE, is_cohost = FALSE
			WHERE id = $1 AND scholium_id = $2 AND is_host
		`, fromMemberID, scholiumID)
		if err != nil {
			return fmt.Errorf("demote host: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return base.ErrNotFound
		}

		tag, err = tx.Exec(ctx, `
			UPDATE scholium_members
			SET is_host = TRUE, is_cohost = FALSE, can_add_homework = TRUE, can_create_subject = TRUE
			WHERE id = $1 AND scholium_id = $2
		`, toMemberID, scholiumID)
		if err != nil {
			return fmt.Errorf("promote host: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return base.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `UPDATE scholiums SET host_user_id = $2, updated_at = NOW() WHERE id = $1`, scholiumID, newHost); err != nil {
			return fmt.Errorf("update scholium host: %w", err)
		}

		r.logger.Info("Host transferred",
			zap.Int64("scholium_id", scholiumID),
			zap.Int64("from_member_id", fromMemberID),
			zap.Int64("to_member_id", toMemberID))
		return nil
	})
}

var _ service.MemberRepository = (*MemberRepository)(nil)
