package service

import (
	"context"
	"log"
	"time"

	"phlock_server/internal/repository/mysql"
)

// CountReconciler 计数对账：follow 表和触达账本是准的，
// user 表上的缓存列漂了就修回来
type CountReconciler struct {
	repo      *mysql.CountReconcilerRepo
	batchSize int
	interval  time.Duration
}

func NewCountReconciler() *CountReconciler {
	return &CountReconciler{
		repo:      &mysql.CountReconcilerRepo{DB: mysql.DB},
		batchSize: 500,
		interval:  5 * time.Minute,
	}
}

// Run 对账定时任务启动器
func (r *CountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	var lastID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			lastID = r.reconcileOnce(ctx, lastID)
		}
	}
}

// reconcileOnce 对一批用户，返回下一轮的游标；扫完一轮从头再来
func (r *CountReconciler) reconcileOnce(ctx context.Context, lastID uint64) uint64 {
	users, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
	if err != nil {
		log.Printf("reconcile list err: %v", err)
		return lastID
	}
	if len(users) == 0 {
		return 0
	}

	for _, u := range users {
		fields := map[string]any{}
		if real, err := r.repo.RealFollowings(ctx, u.ID); err == nil && real != u.FollowingCount {
			fields["following_count"] = real
		}
		if real, err := r.repo.RealFollowers(ctx, u.ID); err == nil && real != u.FollowerCount {
			fields["follower_count"] = real
		}
		if real, err := r.repo.RealReach(ctx, u.ID); err == nil && real != u.ReachCount {
			fields["reach_count"] = real
		}
		if err := r.repo.ReconcileCounts(ctx, u.ID, fields); err != nil {
			log.Printf("reconcile update err: user=%d %v", u.ID, err)
		}
	}
	return next
}
