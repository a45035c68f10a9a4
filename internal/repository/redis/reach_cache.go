package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ReachCntTTL       = 24 * time.Hour
	LockTTL           = 300 * time.Millisecond
	ReachCntKeyPrefix = "reach:cnt:user" // 缓存用户的终身触达数
	LockKeyPrefix     = "lock:reach:user" // 分布式锁
)

// ReachCacheRepository 触达数的 cache-aside 缓存
type ReachCacheRepository struct {
	reachCntTTL time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewReachCacheRepository() *ReachCacheRepository {
	return &ReachCacheRepository{
		reachCntTTL: ReachCntTTL,
	}
}

func (r *ReachCacheRepository) reachCntKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", ReachCntKeyPrefix, userID)
}

// GetReachCached 从缓存读触达数
func (r *ReachCacheRepository) GetReachCached(ctx context.Context, userID uint64) (int64, bool, error) {
	ck := r.reachCntKey(userID)
	val, err := Client.Get(ctx, ck).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return val, true, err
}

// SetReach 回填触达数
func (r *ReachCacheRepository) SetReach(ctx context.Context, userID uint64, cnt int64) error {
	ck := r.reachCntKey(userID)
	return Client.Set(ctx, ck, cnt, r.reachCntTTL).Err()
}

// DeleteReach 删计数Key，支持可选延迟二删，抵消并发回填窗口
func (r *ReachCacheRepository) DeleteReach(ctx context.Context, userID uint64, delay ...time.Duration) error {
	key := r.reachCntKey(userID)
	if err := Client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(delay) > 0 && delay[0] > 0 {
		d := delay[0]
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			<-t.C
			_ = Client.Del(context.Background(), key).Err()
		}()
	}
	return nil
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, userID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, userID)
	return l.RDB.SetNX(ctx, key, token, LockTTL).Result()
}

// Release 用lua保证原子性
func (l *DistLock) Release(ctx context.Context, userID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, userID)
	_, err := redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`).Run(ctx, l.RDB, []string{key}, token).Result()
	return err
}
