package mysql

import (
	"fmt"
	"testing"

	"phlock_server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertNudgeAggregates(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	recipient := users[0].ID
	repo := &NotificationRepository{DB: db}
	ctx := t.Context()
	date := day("2026-03-01")

	changed, err := repo.UpsertNudge(ctx, users[1].ID, recipient, date)
	require.NoError(t, err)
	assert.True(t, changed)

	// 同一人同一天重复催，幂等
	changed, err = repo.UpsertNudge(ctx, users[1].ID, recipient, date)
	require.NoError(t, err)
	assert.False(t, changed)

	// 第二个人并入同一条聚合
	changed, err = repo.UpsertNudge(ctx, users[2].ID, recipient, date)
	require.NoError(t, err)
	assert.True(t, changed)

	var rows []model.Notification
	require.NoError(t, db.Where("recipient_id=?", recipient).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.ElementsMatch(t, []uint64{users[1].ID, users[2].ID}, rows[0].Actors())

	// 只给真实变化发推送，所以这里是两条
	var pushes int64
	require.NoError(t, db.Model(&model.PushOutbox{}).
		Where("event_type=? AND user_id=?", "nudge", recipient).
		Count(&pushes).Error)
	assert.Equal(t, int64(2), pushes)
}

func TestUpsertNudgeMergesIntoExistingRow(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 3)
	recipient := users[0].ID
	repo := &NotificationRepository{DB: db}
	ctx := t.Context()
	date := day("2026-03-01")

	// 聚合行已被并发的首催建好（绕过仓储直插模拟）
	require.NoError(t, db.Create(&model.Notification{
		RecipientID: recipient,
		NotifyDate:  date,
		Kind:        model.NotificationKindNudge,
		ActorSet:    fmt.Sprintf("[%d]", users[1].ID),
	}).Error)

	// 后到的催歌并入集合，不报唯一键冲突
	changed, err := repo.UpsertNudge(ctx, users[2].ID, recipient, date)
	require.NoError(t, err)
	assert.True(t, changed)

	var rows []model.Notification
	require.NoError(t, db.Where("recipient_id=?", recipient).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.ElementsMatch(t, []uint64{users[1].ID, users[2].ID}, rows[0].Actors())
}

func TestUpsertNudgeSeparateDays(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 2)
	repo := &NotificationRepository{DB: db}
	ctx := t.Context()

	_, err := repo.UpsertNudge(ctx, users[1].ID, users[0].ID, day("2026-03-01"))
	require.NoError(t, err)
	_, err = repo.UpsertNudge(ctx, users[1].ID, users[0].ID, day("2026-03-02"))
	require.NoError(t, err)

	rows, err := repo.ListByRecipient(ctx, users[0].ID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	// 最近的排前面
	assert.Equal(t, day("2026-03-02"), dateOnly(rows[0].NotifyDate))
}
