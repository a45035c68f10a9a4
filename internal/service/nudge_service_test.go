package service

import (
	"testing"
	"time"

	"phlock_server/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newNudgeService(db *gorm.DB, now time.Time) *NudgeService {
	return &NudgeService{
		notifRepo:  &mysql.NotificationRepository{DB: db},
		followRepo: &mysql.FollowRepository{DB: db},
		userRepo:   &mysql.UserRepository{DB: db},
		now:        func() time.Time { return now },
	}
}

func TestSendNudgeRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 2)
	svc := newNudgeService(db, testNow)
	ctx := t.Context()

	assert.Error(t, svc.SendNudge(ctx, users[0].ID, users[0].ID))

	// 只关注不在圈子里，没资格催
	mustFollow(t, db, users[0].ID, users[1].ID)
	assert.ErrorIs(t, svc.SendNudge(ctx, users[0].ID, users[1].ID), mysql.ErrNotInPhlock)

	phlock := newPhlockService(db, testNow)
	require.NoError(t, phlock.AddMember(ctx, users[0].ID, users[1].ID, 1))
	require.NoError(t, svc.SendNudge(ctx, users[0].ID, users[1].ID))
}

func TestListNotificationsSummary(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 5)
	recipient := users[0].ID
	svc := newNudgeService(db, testNow)
	phlock := newPhlockService(db, testNow)
	ctx := t.Context()

	// 四个人都把 recipient 放进圈子然后催
	for _, u := range users[1:] {
		mustFollow(t, db, u.ID, recipient)
		require.NoError(t, phlock.AddMember(ctx, u.ID, recipient, 1))
		require.NoError(t, svc.SendNudge(ctx, u.ID, recipient))
	}

	views, err := svc.ListNotifications(ctx, recipient, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Len(t, views[0].ActorIDs, 4)
	assert.Equal(t, "user2、user3 和另外 2 人催你发歌", views[0].Summary)
}

func TestNudgeSummaryVariants(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 2)
	svc := newNudgeService(db, testNow)

	assert.Equal(t, "", svc.nudgeSummary(nil))
	assert.Equal(t, "user1 催你发歌", svc.nudgeSummary([]uint64{users[0].ID}))
	assert.Equal(t, "user1、user2 催你发歌", svc.nudgeSummary([]uint64{users[0].ID, users[1].ID}))
	// 查不到的用户折叠进"另外N人"
	assert.Equal(t, "user1 和另外 1 人催你发歌", svc.nudgeSummary([]uint64{users[0].ID, 9999}))
}
