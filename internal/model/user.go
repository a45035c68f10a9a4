package model

import "time"

type User struct {
	ID       uint64 `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;size:32;not null"`
	Password string `gorm:"size:255;not null"`
	Role     int    `gorm:"default:0"`
	Email    string `gorm:"uniqueIndex;size:64;not null"`
	// IANA 时区名，入队计算本地零点时读取
	Timezone string `gorm:"size:64;not null;default:'UTC'"`

	// 连续选歌计数，只由每日选歌写路径更新，读侧惰性清零
	StreakCount  int        `gorm:"not null;default:0"`
	LastPickDate *time.Time `gorm:"type:date"`

	// 缓存计数，由对账任务兜底
	ReachCount     int64 `gorm:"not null;default:0"`
	FollowerCount  int64 `gorm:"not null;default:0"`
	FollowingCount int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
