package model

import "time"

// DailyPick 每人每天一首歌，(user_id, pick_date) 唯一保证幂等
type DailyPick struct {
	ID       uint64    `gorm:"primaryKey"`
	UserID   uint64    `gorm:"not null;uniqueIndex:uk_user_date"`
	PickDate time.Time `gorm:"type:date;not null;uniqueIndex:uk_user_date"`

	TrackRef   string `gorm:"size:64;not null"` // 曲库 track id
	TrackName  string `gorm:"size:200;not null"`
	ArtistName string `gorm:"size:200;not null"`
	ArtworkURL string `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DailyPick) TableName() string {
	return "daily_picks"
}
