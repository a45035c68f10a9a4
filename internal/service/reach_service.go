package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phlock_server/internal/repository/mysql"
	"phlock_server/internal/repository/redis"
)

type ReachService struct {
	userRepo   *mysql.UserRepository
	reachCache *redis.ReachCacheRepository
	lock       *redis.DistLock
}

func NewReachService() *ReachService {
	return &ReachService{
		userRepo:   &mysql.UserRepository{DB: mysql.DB},
		reachCache: redis.NewReachCacheRepository(),
		lock:       &redis.DistLock{RDB: redis.Client},
	}
}

// GetReach 终身触达数。缓存优先，miss 时拿锁回源，拿不到锁退避后再读一次，
// 避免热点用户全体打 DB（照抄点赞计数的读侧策略）。
func (s *ReachService) GetReach(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, errors.New("invalid user id")
	}
	if v, ok, err := s.reachCache.GetReachCached(ctx, userID); err == nil && ok {
		return v, nil
	}

	token := fmt.Sprintf("%d-%d", userID, time.Now().UnixNano())
	got, _ := s.lock.Acquire(ctx, userID, token)
	if got {
		defer func() {
			_ = s.lock.Release(ctx, userID, token)
		}()

		// 双重检查
		if v, ok, err := s.reachCache.GetReachCached(ctx, userID); err == nil && ok {
			return v, nil
		}

		user, err := s.userRepo.FindByID(userID)
		if err != nil {
			return 0, err
		}
		_ = s.reachCache.SetReach(ctx, userID, user.ReachCount)
		return user.ReachCount, nil
	}

	// 没拿到锁，短暂退避后再读一次缓存
	time.Sleep(50 * time.Millisecond)
	if v, ok, err := s.reachCache.GetReachCached(ctx, userID); err == nil && ok {
		return v, nil
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return 0, err
	}
	return user.ReachCount, nil
}

// InvalidateReach 账本有新插入后删计数Key，读侧重建
func (s *ReachService) InvalidateReach(ctx context.Context, userID uint64) {
	_ = s.reachCache.DeleteReach(ctx, userID)
}
