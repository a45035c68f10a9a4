package mysql

import (
	"fmt"
	"testing"

	"phlock_server/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Follow{},
		&model.DailyPick{},
		&model.ReachEntry{},
		&model.ScheduledMutation{},
		&model.Notification{},
		&model.PushOutbox{},
	))
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, n int) []model.User {
	t.Helper()
	users := make([]model.User, 0, n)
	for i := 1; i <= n; i++ {
		u := model.User{
			Username: fmt.Sprintf("user%d", i),
			Password: "x",
			Email:    fmt.Sprintf("user%d@example.com", i),
			Timezone: "UTC",
		}
		require.NoError(t, db.Create(&u).Error)
		users = append(users, u)
	}
	return users
}

func follow(t *testing.T, db *gorm.DB, follower, followee uint64) {
	t.Helper()
	repo := &FollowRepository{DB: db}
	_, err := repo.Follow(t.Context(), follower, followee)
	require.NoError(t, err)
}
