package service

import (
	"fmt"
	"testing"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/repository/mysql"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
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

// newPhlockService 测试用装配：跳过 redis，时间可控
func newPhlockService(db *gorm.DB, now time.Time) *PhlockService {
	return &PhlockService{
		followRepo: &mysql.FollowRepository{DB: db},
		pickRepo:   &mysql.DailyPickRepository{DB: db},
		mutRepo:    &mysql.MutationRepository{DB: db},
		userRepo:   &mysql.UserRepository{DB: db},
		now:        func() time.Time { return now },
	}
}

func newWorker(db *gorm.DB, now time.Time) *MutationWorker {
	return &MutationWorker{
		mutRepo:    &mysql.MutationRepository{DB: db},
		followRepo: &mysql.FollowRepository{DB: db},
		batchSize:  100,
		interval:   time.Minute,
		now:        func() time.Time { return now },
	}
}
