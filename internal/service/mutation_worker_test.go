package service

import (
	"testing"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerTransientErrorReleasesClaim(t *testing.T) {
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

	// 弄坏 follow 表制造瞬态 DB 错误
	require.NoError(t, db.Exec("ALTER TABLE follow RENAME TO follow_bak").Error)

	after := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	newWorker(db, after).DrainOnce(ctx)

	// 认领被释放，行还是 pending，下一轮还能捞到
	var m model.ScheduledMutation
	require.NoError(t, db.Where("public_id=?", res.MutationID).First(&m).Error)
	assert.Equal(t, model.MutationPending, m.Status)
	assert.Nil(t, m.ClaimedAt)

	mutRepo := &mysql.MutationRepository{DB: db}
	rows, err := mutRepo.ListDue(ctx, after, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 表恢复后重试成功
	require.NoError(t, db.Exec("ALTER TABLE follow_bak RENAME TO follow").Error)
	newWorker(db, after).DrainOnce(ctx)

	require.NoError(t, db.Where("public_id=?", res.MutationID).First(&m).Error)
	assert.Equal(t, model.MutationCompleted, m.Status)

	followRepo := &mysql.FollowRepository{DB: db}
	pos, err := followRepo.CurrentPosition(ctx, owner, newM)
	require.NoError(t, err)
	assert.Equal(t, int8(1), pos)
}
