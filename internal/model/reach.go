package model

import "time"

// ReachEntry 历史触达账本，只追加不删除：(owner, member) 终身最多一条
type ReachEntry struct {
	ID           uint64    `gorm:"primaryKey"`
	OwnerID      uint64    `gorm:"not null;uniqueIndex:uk_owner_member"`
	MemberID     uint64    `gorm:"not null;index;uniqueIndex:uk_owner_member"`
	FirstAddedAt time.Time `gorm:"not null"`
	CreatedAt    time.Time
}

func (ReachEntry) TableName() string {
	return "reach_entries"
}
