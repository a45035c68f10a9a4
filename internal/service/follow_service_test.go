package service

import (
	"testing"

	"phlock_server/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowServiceLists(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, 4)
	svc := &FollowService{repo: &mysql.FollowRepository{DB: db}}
	ctx := t.Context()

	for _, u := range users[1:] {
		_, err := svc.Follow(ctx, users[0].ID, u.ID)
		require.NoError(t, err)
		_, err = svc.Follow(ctx, u.ID, users[0].ID)
		require.NoError(t, err)
	}

	rows, next, err := svc.ListFollowings(ctx, users[0].ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Zero(t, next)
	// 带类型的边，调用方直接取字段
	assert.Equal(t, users[0].ID, rows[0].FollowerID)

	rows, _, err = svc.ListFollowers(ctx, users[0].ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, users[0].ID, rows[0].FolloweeID)

	_, err = svc.Follow(ctx, users[0].ID, users[0].ID)
	assert.Error(t, err)
}
