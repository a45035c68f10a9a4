package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/pkg"
	"phlock_server/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveStreak(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	d := func(day int) *time.Time {
		v := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name string
		last *time.Time
		cnt  int
		want int
	}{
		{"从未选过", nil, 0, 0},
		{"今天选过", d(10), 3, 3},
		{"昨天选过", d(9), 3, 3},
		{"断了一天", d(8), 3, 0},
		{"断了五天", d(5), 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveStreak(tt.cnt, tt.last, today))
		})
	}
}

func TestRecordPickResolverFallback(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 1)
	uid := users[0].ID
	ctx := t.Context()

	newSvc := func(resolve TrackResolver) *PickService {
		return &PickService{
			pickRepo: &mysql.DailyPickRepository{DB: db},
			userRepo: &mysql.UserRepository{DB: db},
			resolve:  resolve,
			now:      func() time.Time { return testNow },
		}
	}

	// 曲库正常
	svc := newSvc(func(ctx context.Context, ref string) (*pkg.TrackInfo, error) {
		return &pkg.TrackInfo{Name: "Resolved", Artist: "Band"}, nil
	})
	created, err := svc.RecordPick(ctx, uid, "spotify:track:a", "", "")
	require.NoError(t, err)
	assert.True(t, created)

	var pick model.DailyPick
	require.NoError(t, db.Where("user_id=?", uid).First(&pick).Error)
	assert.Equal(t, "Resolved", pick.TrackName)

	// 曲库挂了，客户端带缓存就降级落库
	svc = newSvc(func(ctx context.Context, ref string) (*pkg.TrackInfo, error) {
		return nil, errors.New("catalog down")
	})
	_, err = svc.RecordPick(ctx, uid, "spotify:track:a", "Cached Song", "Cached Artist")
	require.NoError(t, err)
	require.NoError(t, db.Where("user_id=?", uid).First(&pick).Error)
	assert.Equal(t, "Cached Song", pick.TrackName)

	// 两头都没有
	_, err = svc.RecordPick(ctx, uid, "spotify:track:a", "", "")
	assert.ErrorIs(t, err, pkg.ErrTrackUnavailable)
}

func TestGetEffectiveStreakLazyZero(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 1)
	uid := users[0].ID
	ctx := t.Context()

	// 三天前选过歌，存储里计数还是4
	last := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&model.User{}).Where("id=?", uid).
		Updates(map[string]any{"streak_count": 4, "last_pick_date": last}).Error)

	svc := &PickService{
		pickRepo: &mysql.DailyPickRepository{DB: db},
		userRepo: &mysql.UserRepository{DB: db},
		now:      func() time.Time { return testNow },
	}
	n, err := svc.GetEffectiveStreak(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// 存储不动
	var u model.User
	require.NoError(t, db.First(&u, uid).Error)
	assert.Equal(t, 4, u.StreakCount)
}
