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

// 同步校验错误，直接返回调用方，不入队不落库
var (
	ErrNotFollowing     = errors.New("not following")
	ErrNotInPhlock      = errors.New("not in phlock")
	ErrSlotOccupied     = errors.New("slot occupied")
	ErrCapacityExceeded = errors.New("phlock is full")
	ErrAlreadyInPhlock  = errors.New("already in phlock")
)

const PhlockCapacity = 5

// 触达里程碑，跨过时发推送
var reachMilestones = []int64{10, 50, 100, 500, 1000}

type FollowRepository struct {
	DB *gorm.DB
}

// Follow 设置关系为关注（幂等）。如果状态从未关注切换为已关注，则返回 changed=true。
func (r *FollowRepository) Follow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Follow
		// select for update 避免竞争
		if err := forUpdate(tx).Where("follower_id=? AND followee_id=?", followerID, followeeID).First(&rel).Error; err != nil {
			// 如果没找到信息则创建
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rel = model.Follow{
					FollowerID: followerID,
					FolloweeID: followeeID,
					Status:     1,
				}
				if err = tx.Create(&rel).Error; err != nil {
					return err
				}
				changed = true
				return r.adjustCounts(tx, followerID, followeeID, +1)
			}
			return err
		}
		// 幂等：已是关注状态直接返回
		if rel.Status == 1 {
			changed = false
			return nil
		}
		if err := tx.Model(&model.Follow{}).
			Where("id=? AND status=0", rel.ID).
			Update("status", 1).Error; err != nil {
			return err
		}
		changed = true
		return r.adjustCounts(tx, followerID, followeeID, +1)
	})
	return changed, err
}

// Unfollow 取消关注；若对方占着 phlock 槽位则一并腾出
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Follow
		if err := forUpdate(tx).Where("follower_id=? AND followee_id=?", followerID, followeeID).First(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				changed = false
				return nil
			}
			return err
		}
		if rel.Status == 0 {
			changed = false
			return nil
		}
		if err := tx.Model(&model.Follow{}).
			Where("id=? AND status=1", rel.ID).
			Updates(map[string]any{
				"status":          0,
				"is_in_phlock":    false,
				"phlock_position": nil,
				"phlock_added_at": nil,
			}).Error; err != nil {
			return err
		}
		changed = true
		return r.adjustCounts(tx, followerID, followeeID, -1)
	})
	return changed, err
}

// IsFollowing 判断是否关注
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id=? AND followee_id=? AND status=1", followerID, followeeID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddToPhlock 把 member 放进 owner 的指定槽位。
// 事务内锁住 owner 的全部占位边来串行化同一 owner 的并发修改；
// 首次成为成员时顺带写触达账本（insert-if-absent），返回 firstAdd=true。
func (r *FollowRepository) AddToPhlock(ctx context.Context, ownerID, memberID uint64, position int8) (bool, error) {
	var firstAdd bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var occupied []model.Follow
		if err := forUpdate(tx).
			Where("follower_id=? AND is_in_phlock=?", ownerID, true).
			Find(&occupied).Error; err != nil {
			return err
		}
		for _, e := range occupied {
			if e.FolloweeID == memberID {
				return ErrAlreadyInPhlock
			}
			if e.PhlockPosition != nil && *e.PhlockPosition == position {
				return ErrSlotOccupied
			}
		}
		if len(occupied) >= PhlockCapacity {
			return ErrCapacityExceeded
		}

		var rel model.Follow
		if err := forUpdate(tx).
			Where("follower_id=? AND followee_id=? AND status=1", ownerID, memberID).
			First(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFollowing
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&model.Follow{}).
			Where("id=?", rel.ID).
			Updates(map[string]any{
				"is_in_phlock":    true,
				"phlock_position": position,
				"phlock_added_at": now,
			}).Error; err != nil {
			return err
		}

		added, err := r.recordReach(tx, ownerID, memberID, now)
		if err != nil {
			return err
		}
		firstAdd = added
		return nil
	})
	return firstAdd, err
}

// RemoveFromPhlock 腾出 member 占用的槽位，返回原槽位号
func (r *FollowRepository) RemoveFromPhlock(ctx context.Context, ownerID, memberID uint64) (int8, error) {
	var freed int8
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Follow
		if err := forUpdate(tx).
			Where("follower_id=? AND followee_id=? AND status=1 AND is_in_phlock=?", ownerID, memberID, true).
			First(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotInPhlock
			}
			return err
		}
		if rel.PhlockPosition != nil {
			freed = *rel.PhlockPosition
		}
		return tx.Model(&model.Follow{}).
			Where("id=?", rel.ID).
			Updates(map[string]any{
				"is_in_phlock":    false,
				"phlock_position": nil,
				"phlock_added_at": nil,
			}).Error
	})
	return freed, err
}

// CurrentPosition 查询 member 在 owner phlock 中的槽位
func (r *FollowRepository) CurrentPosition(ctx context.Context, ownerID, memberID uint64) (int8, error) {
	var rel model.Follow
	err := r.DB.WithContext(ctx).
		Where("follower_id=? AND followee_id=? AND status=1 AND is_in_phlock=?", ownerID, memberID, true).
		First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotInPhlock
	}
	if err != nil {
		return 0, err
	}
	if rel.PhlockPosition == nil {
		return 0, ErrNotInPhlock
	}
	return *rel.PhlockPosition, nil
}

// ListPhlock 按槽位号返回 owner 的 phlock 成员边
func (r *FollowRepository) ListPhlock(ctx context.Context, ownerID uint64) ([]model.Follow, error) {
	var rows []model.Follow
	err := r.DB.WithContext(ctx).
		Where("follower_id=? AND is_in_phlock=?", ownerID, true).
		Order("phlock_position ASC").
		Find(&rows).Error
	return rows, err
}

// ListFollowings 获取关注者列表
func (r *FollowRepository) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id=? AND status=1", userID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Follow
	// 这里limit+1是为了更好的继续分页
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// ListFollowers 获取粉丝列表
func (r *FollowRepository) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("followee_id=? AND status=1", userID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Follow
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// recordReach 首次入圈写账本：insert-if-absent，并发重复调用只有一条落库。
// 插入成功后重算成员的终身触达数，跨过里程碑时写推送事件。
func (r *FollowRepository) recordReach(tx *gorm.DB, ownerID, memberID uint64, now time.Time) (bool, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "member_id"}},
		DoNothing: true,
	}).Create(&model.ReachEntry{
		OwnerID:      ownerID,
		MemberID:     memberID,
		FirstAddedAt: now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// 账本里已有，终身指标不重复累计
		return false, nil
	}

	var count int64
	if err := tx.Model(&model.ReachEntry{}).
		Where("member_id=?", memberID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if err := tx.Model(&model.User{}).
		Where("id=?", memberID).
		UpdateColumn("reach_count", count).Error; err != nil {
		return false, err
	}
	for _, m := range reachMilestones {
		if count == m {
			if err := insertPush(tx, "reach_milestone", memberID, map[string]any{
				"reach": count,
			}); err != nil {
				return false, err
			}
			break
		}
	}
	return true, nil
}

// adjustCounts 调整关注/粉丝计数，防负交给 CASE 表达式
func (r *FollowRepository) adjustCounts(tx *gorm.DB, followerID, followeeID uint64, delta int64) error {
	if err := tx.Model(&model.User{}).
		Where("id=?", followerID).
		UpdateColumn("following_count", gorm.Expr("CASE WHEN following_count + ? > 0 THEN following_count + ? ELSE 0 END", delta, delta)).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.User{}).
		Where("id=?", followeeID).
		UpdateColumn("follower_count", gorm.Expr("CASE WHEN follower_count + ? > 0 THEN follower_count + ? ELSE 0 END", delta, delta)).Error; err != nil {
		return err
	}
	return nil
}

// insertPush 事务内写推送事件，由 relayer 异步投递
func insertPush(tx *gorm.DB, event string, userID uint64, fields map[string]any) error {
	body := map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		body[k] = v
	}
	payload, _ := json.Marshal(body)
	return tx.Create(&model.PushOutbox{
		EventType: event,
		UserID:    userID,
		Payload:   string(payload),
		Status:    0,
	}).Error
}
