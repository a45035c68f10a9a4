package model

import "time"

// Follow 有向关注边，phlock 槽位状态挂在边上（仅 follower 视角有效）
type Follow struct {
	ID         uint64 `gorm:"primaryKey"`
	FollowerID uint64 `gorm:"not null;uniqueIndex:uk_follower_followee;uniqueIndex:uk_owner_slot"`
	FolloweeID uint64 `gorm:"not null;index:idx_followee_id;uniqueIndex:uk_follower_followee"`
	Status     int8   `gorm:"not null;default:1;comment:'1=follow,0=unfollow'"`

	// 槽位号 1-5，不在 phlock 内时为 NULL；(follower, position) 唯一，NULL 不参与约束
	IsInPhlock     bool       `gorm:"not null;default:false"`
	PhlockPosition *int8      `gorm:"uniqueIndex:uk_owner_slot"`
	PhlockAddedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

// PushOutbox 推送事件表，由 relayer 异步投递
type PushOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"` // mutation_completed / mutation_failed / reach_milestone / nudge
	UserID    uint64 `gorm:"not null;index"`   // 推送接收者
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PushOutbox) TableName() string { return "push_outbox" }
