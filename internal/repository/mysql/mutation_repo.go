package mysql

import (
	"context"
	"time"

	"phlock_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MutationRepository struct {
	DB *gorm.DB
}

// Enqueue 落一条 pending 变更，返回对外的 uuid
func (r *MutationRepository) Enqueue(ctx context.Context, userID, oldMemberID uint64, newMemberID *uint64, scheduledFor time.Time) (string, error) {
	m := model.ScheduledMutation{
		PublicID:     uuid.NewString(),
		UserID:       userID,
		OldMemberID:  oldMemberID,
		NewMemberID:  newMemberID,
		Status:       model.MutationPending,
		ScheduledFor: scheduledFor,
	}
	if err := r.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return "", err
	}
	return m.PublicID, nil
}

// ListDue 捞到期且未被认领的 pending 行
func (r *MutationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledMutation, error) {
	var rows []model.ScheduledMutation
	err := r.DB.WithContext(ctx).
		Where("status=? AND claimed_at IS NULL AND scheduled_for <= ?", model.MutationPending, now).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Claim 认领一行。条件更新保证和取消互斥：要么被认领要么被取消，不会两者都成立。
func (r *MutationRepository) Claim(ctx context.Context, id uint64, now time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.ScheduledMutation{}).
		Where("id=? AND status=? AND claimed_at IS NULL", id, model.MutationPending).
		Update("claimed_at", now)
	return res.RowsAffected == 1, res.Error
}

// Unclaim 瞬态错误后释放认领，让下一轮扫描重试；终态行不受影响
func (r *MutationRepository) Unclaim(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).
		Model(&model.ScheduledMutation{}).
		Where("id=? AND status=?", id, model.MutationPending).
		Update("claimed_at", nil).Error
}

// Cancel 用户在 worker 认领前撤回；认领后撤回不生效
func (r *MutationRepository) Cancel(ctx context.Context, publicID string, userID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.ScheduledMutation{}).
		Where("public_id=? AND user_id=? AND status=? AND claimed_at IS NULL", publicID, userID, model.MutationPending).
		Update("status", model.MutationCancelled)
	return res.RowsAffected == 1, res.Error
}

// MarkCompleted pending -> completed，只允许从 pending 迁出；
// 真的迁移了才在同事务写推送事件，已是终态的行不重复通知
func (r *MutationRepository) MarkCompleted(ctx context.Context, m *model.ScheduledMutation) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ScheduledMutation{}).
			Where("id=? AND status=?", m.ID, model.MutationPending).
			Update("status", model.MutationCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return insertPush(tx, "mutation_completed", m.UserID, map[string]any{
			"mutation_id": m.PublicID,
			"old_member":  m.OldMemberID,
			"new_member":  m.NewMemberID,
		})
	})
}

// MarkFailed pending -> failed，错误信息留在行上供排查，不自动重试。
// 失败也发推送：owner 的圈子缺了人，得让他知道去补位。
func (r *MutationRepository) MarkFailed(ctx context.Context, m *model.ScheduledMutation, reason string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ScheduledMutation{}).
			Where("id=? AND status=?", m.ID, model.MutationPending).
			Updates(map[string]any{
				"status": model.MutationFailed,
				"error":  reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return insertPush(tx, "mutation_failed", m.UserID, map[string]any{
			"mutation_id": m.PublicID,
			"old_member":  m.OldMemberID,
			"error":       reason,
		})
	})
}

// FindByPublicID 按对外 id 查单条
func (r *MutationRepository) FindByPublicID(ctx context.Context, publicID string) (*model.ScheduledMutation, error) {
	var m model.ScheduledMutation
	err := r.DB.WithContext(ctx).Where("public_id=?", publicID).First(&m).Error
	return &m, err
}

// ListByUser 用户的变更历史，最近的在前
func (r *MutationRepository) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.ScheduledMutation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []model.ScheduledMutation
	err := r.DB.WithContext(ctx).
		Where("user_id=?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
