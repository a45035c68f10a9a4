package model

import "time"

// 调度状态机：pending -> completed | failed | cancelled，终态不可再迁移
const (
	MutationPending   = "pending"
	MutationCompleted = "completed"
	MutationFailed    = "failed"
	MutationCancelled = "cancelled"
)

// ScheduledMutation 延迟到次日零点执行的换人/移除请求
type ScheduledMutation struct {
	ID       uint64 `gorm:"primaryKey"`
	PublicID string `gorm:"size:36;not null;uniqueIndex"` // 对外暴露的 uuid
	UserID   uint64 `gorm:"not null;index:idx_user_status"`

	OldMemberID uint64  `gorm:"not null"`
	NewMemberID *uint64 // NULL 表示纯移除

	Status       string     `gorm:"size:16;not null;default:'pending';index:idx_user_status;index:idx_status_sched"`
	ScheduledFor time.Time  `gorm:"not null;index:idx_status_sched"`
	ClaimedAt    *time.Time // worker 认领标记，认领后不可再取消
	Error        string     `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ScheduledMutation) TableName() string {
	return "scheduled_mutations"
}
