package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"phlock_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	DB *gorm.DB
}

// UpsertNudge 按 (recipient, date, kind) 聚合催歌：不存在则建，存在则并入 actor。
// 行锁保证并发催歌做集合并；并发首催靠 insert-if-absent 兜底，
// 输掉插入的一方转去并集，不往上抛冲突。返回是否真的有变化。
func (r *NotificationRepository) UpsertNudge(ctx context.Context, actorID, recipientID uint64, date time.Time) (bool, error) {
	date = dateOnly(date)
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n model.Notification
		err := forUpdate(tx).
			Where("recipient_id=? AND notify_date=? AND kind=?", recipientID, date, model.NotificationKindNudge).
			First(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			raw, _ := json.Marshal([]uint64{actorID})
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "notify_date"}, {Name: "kind"}},
				DoNothing: true,
			}).Create(&model.Notification{
				RecipientID: recipientID,
				NotifyDate:  date,
				Kind:        model.NotificationKindNudge,
				ActorSet:    string(raw),
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				changed = true
				return insertPush(tx, "nudge", recipientID, map[string]any{
					"actor": actorID,
				})
			}
			// 首催撞车输了，重查并入
			if err = forUpdate(tx).
				Where("recipient_id=? AND notify_date=? AND kind=?", recipientID, date, model.NotificationKindNudge).
				First(&n).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if !n.AddActor(actorID) {
			// 同一人重复催，幂等
			return nil
		}
		changed = true
		if err = tx.Model(&model.Notification{}).
			Where("id=?", n.ID).
			Updates(map[string]any{
				"actor_set":  n.ActorSet,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		return insertPush(tx, "nudge", recipientID, map[string]any{
			"actor": actorID,
		})
	})
	return changed, err
}

// ListByRecipient 查某人某天起的通知，最近的在前
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []model.Notification
	err := r.DB.WithContext(ctx).
		Where("recipient_id=?", recipientID).
		Order("notify_date DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
