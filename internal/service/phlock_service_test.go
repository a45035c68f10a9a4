package service

import (
	"testing"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 2026-03-01 下午三点（UTC），测试里的"现在"
var testNow = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

func mustFollow(t *testing.T, db *gorm.DB, follower, followee uint64) {
	t.Helper()
	repo := &mysql.FollowRepository{DB: db}
	_, err := repo.Follow(t.Context(), follower, followee)
	require.NoError(t, err)
}

func mustPick(t *testing.T, db *gorm.DB, userID uint64, date time.Time) {
	t.Helper()
	repo := &mysql.DailyPickRepository{DB: db}
	_, err := repo.CreatePick(t.Context(), userID, date, mysql.TrackFields{Ref: "t", Name: "Song"})
	require.NoError(t, err)
}

func TestAddMemberValidatesPosition(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 2)
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	assert.ErrorIs(t, svc.AddMember(ctx, users[0].ID, users[1].ID, 0), ErrInvalidPosition)
	assert.ErrorIs(t, svc.AddMember(ctx, users[0].ID, users[1].ID, 6), ErrInvalidPosition)
	assert.Error(t, svc.AddMember(ctx, users[0].ID, users[0].ID, 1))

	mustFollow(t, db, users[0].ID, users[1].ID)
	require.NoError(t, svc.AddMember(ctx, users[0].ID, users[1].ID, 1))
}

func TestRequestSwapImmediate(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	owner, oldM, newM := users[0].ID, users[1].ID, users[2].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	mustFollow(t, db, owner, oldM)
	mustFollow(t, db, owner, newM)
	require.NoError(t, svc.AddMember(ctx, owner, oldM, 2))

	// 老成员今天没发歌：立即生效
	res, err := svc.RequestSwap(ctx, owner, oldM, &newM)
	require.NoError(t, err)
	assert.Equal(t, SwapApplied, res.Outcome)
	assert.Empty(t, res.MutationID)

	followRepo := &mysql.FollowRepository{DB: db}
	pos, err := followRepo.CurrentPosition(ctx, owner, newM)
	require.NoError(t, err)
	assert.Equal(t, int8(2), pos)
	_, err = followRepo.CurrentPosition(ctx, owner, oldM)
	assert.ErrorIs(t, err, mysql.ErrNotInPhlock)

	// 没有排期痕迹
	var n int64
	require.NoError(t, db.Model(&model.ScheduledMutation{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestRequestSwapValidation(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 4)
	owner, oldM, newM := users[0].ID, users[1].ID, users[2].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	// 老成员不在圈子里
	_, err := svc.RequestSwap(ctx, owner, oldM, &newM)
	assert.ErrorIs(t, err, mysql.ErrNotInPhlock)

	mustFollow(t, db, owner, oldM)
	require.NoError(t, svc.AddMember(ctx, owner, oldM, 1))

	// 没关注新成员
	_, err = svc.RequestSwap(ctx, owner, oldM, &newM)
	assert.ErrorIs(t, err, mysql.ErrNotFollowing)

	// 新成员已经在圈子里
	other := users[3].ID
	mustFollow(t, db, owner, other)
	require.NoError(t, svc.AddMember(ctx, owner, other, 2))
	_, err = svc.RequestSwap(ctx, owner, oldM, &other)
	assert.ErrorIs(t, err, mysql.ErrAlreadyInPhlock)
}

func TestRequestSwapDeferred(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	owner, oldM, newM := users[0].ID, users[1].ID, users[2].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	mustFollow(t, db, owner, oldM)
	mustFollow(t, db, owner, newM)
	require.NoError(t, svc.AddMember(ctx, owner, oldM, 3))
	mustPick(t, db, oldM, testNow)

	// 老成员今天已发歌：保留到零点
	res, err := svc.RequestSwap(ctx, owner, oldM, &newM)
	require.NoError(t, err)
	assert.Equal(t, SwapScheduled, res.Outcome)
	assert.NotEmpty(t, res.MutationID)
	require.NotNil(t, res.ScheduledFor)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), res.ScheduledFor.UTC())

	followRepo := &mysql.FollowRepository{DB: db}

	// 零点前驱动 worker：老成员原地不动
	newWorker(db, testNow).DrainOnce(ctx)
	pos, err := followRepo.CurrentPosition(ctx, owner, oldM)
	require.NoError(t, err)
	assert.Equal(t, int8(3), pos)

	// 零点后驱动：换血
	after := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	newWorker(db, after).DrainOnce(ctx)

	pos, err = followRepo.CurrentPosition(ctx, owner, newM)
	require.NoError(t, err)
	assert.Equal(t, int8(3), pos)
	_, err = followRepo.CurrentPosition(ctx, owner, oldM)
	assert.ErrorIs(t, err, mysql.ErrNotInPhlock)

	var m model.ScheduledMutation
	require.NoError(t, db.Where("public_id=?", res.MutationID).First(&m).Error)
	assert.Equal(t, model.MutationCompleted, m.Status)
}

func TestRequestSwapDeferredUnfollowFails(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	owner, oldM, newM := users[0].ID, users[1].ID, users[2].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	mustFollow(t, db, owner, oldM)
	mustFollow(t, db, owner, newM)
	require.NoError(t, svc.AddMember(ctx, owner, oldM, 1))
	mustPick(t, db, oldM, testNow)

	res, err := svc.RequestSwap(ctx, owner, oldM, &newM)
	require.NoError(t, err)
	require.Equal(t, SwapScheduled, res.Outcome)

	// 入队后取关新成员
	followRepo := &mysql.FollowRepository{DB: db}
	_, err = followRepo.Unfollow(ctx, owner, newM)
	require.NoError(t, err)

	after := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	newWorker(db, after).DrainOnce(ctx)

	// 老成员已移除、新成员没进来：槽位留空
	_, err = followRepo.CurrentPosition(ctx, owner, oldM)
	assert.ErrorIs(t, err, mysql.ErrNotInPhlock)
	_, err = followRepo.CurrentPosition(ctx, owner, newM)
	assert.ErrorIs(t, err, mysql.ErrNotInPhlock)

	var m model.ScheduledMutation
	require.NoError(t, db.Where("public_id=?", res.MutationID).First(&m).Error)
	assert.Equal(t, model.MutationFailed, m.Status)
	assert.Equal(t, "not following new member", m.Error)
}

func TestRequestSwapPureRemoval(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 2)
	owner, oldM := users[0].ID, users[1].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	mustFollow(t, db, owner, oldM)
	require.NoError(t, svc.AddMember(ctx, owner, oldM, 5))

	res, err := svc.RequestSwap(ctx, owner, oldM, nil)
	require.NoError(t, err)
	assert.Equal(t, SwapApplied, res.Outcome)

	members, err := svc.ListMembers(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestCancelMutation(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	owner, oldM, newM := users[0].ID, users[1].ID, users[2].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	mustFollow(t, db, owner, oldM)
	mustFollow(t, db, owner, newM)
	require.NoError(t, svc.AddMember(ctx, owner, oldM, 1))
	mustPick(t, db, oldM, testNow)

	res, err := svc.RequestSwap(ctx, owner, oldM, &newM)
	require.NoError(t, err)

	ok, err := svc.CancelMutation(ctx, owner, res.MutationID)
	require.NoError(t, err)
	assert.True(t, ok)

	// 取消后零点什么也不发生
	after := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	newWorker(db, after).DrainOnce(ctx)

	followRepo := &mysql.FollowRepository{DB: db}
	pos, err := followRepo.CurrentPosition(ctx, owner, oldM)
	require.NoError(t, err)
	assert.Equal(t, int8(1), pos)
}

func TestFeed(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	owner := users[0].ID
	svc := newPhlockService(db, testNow)
	ctx := t.Context()

	for i, u := range users[1:] {
		mustFollow(t, db, owner, u.ID)
		require.NoError(t, svc.AddMember(ctx, owner, u.ID, int8(i+1)))
	}
	// 只有第一个成员今天发了歌
	mustPick(t, db, users[1].ID, testNow)

	items, err := svc.Feed(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, users[1].ID, items[0].MemberID)
	require.NotNil(t, items[0].Pick)
	assert.Equal(t, "Song", items[0].Pick.TrackName)
	assert.Equal(t, 1, items[0].EffectiveStreak)

	assert.Nil(t, items[1].Pick)
	assert.Equal(t, 0, items[1].EffectiveStreak)
}
