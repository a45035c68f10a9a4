package mysql

import (
	"context"

	"phlock_server/internal/model"

	"gorm.io/gorm"
)

type CountReconcilerRepo struct {
	DB *gorm.DB
}

// Pair 对账消息结构体
type Pair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
	ReachCount     int64
}

// ReconcileList 对账用户批量查询，按 id 游标分批
func (r *CountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]Pair, uint64, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count", "reach_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowings 真实关注数
func (r *CountReconcilerRepo) RealFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id=? AND status=1", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// RealFollowers 真实粉丝数
func (r *CountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("followee_id=? AND status=1", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// RealReach 账本里的真实终身触达数
func (r *CountReconcilerRepo) RealReach(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.ReachEntry{}).
		Where("member_id=?", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ReconcileCounts 用真实值修正缓存列
func (r *CountReconcilerRepo) ReconcileCounts(ctx context.Context, userID uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", userID).
		Updates(fields).Error
}
