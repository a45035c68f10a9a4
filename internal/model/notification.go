package model

import (
	"encoding/json"
	"time"
)

const NotificationKindNudge = "nudge"

// Notification 按 (recipient, date, kind) 聚合，同一天多人催歌只产生一条
type Notification struct {
	ID          uint64    `gorm:"primaryKey"`
	RecipientID uint64    `gorm:"not null;uniqueIndex:uk_recipient_date_kind"`
	NotifyDate  time.Time `gorm:"type:date;not null;uniqueIndex:uk_recipient_date_kind"`
	Kind        string    `gorm:"size:16;not null;uniqueIndex:uk_recipient_date_kind"`
	ActorSet    string    `gorm:"type:json;not null"` // 去重后的发起者 id 数组
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Notification) TableName() string {
	return "notifications"
}

// Actors 解出发起者集合，脏数据按空集处理
func (n *Notification) Actors() []uint64 {
	var ids []uint64
	if err := json.Unmarshal([]byte(n.ActorSet), &ids); err != nil {
		return nil
	}
	return ids
}

// AddActor 并入一个发起者，返回是否真的新增
func (n *Notification) AddActor(actor uint64) bool {
	ids := n.Actors()
	for _, id := range ids {
		if id == actor {
			return false
		}
	}
	ids = append(ids, actor)
	raw, _ := json.Marshal(ids)
	n.ActorSet = string(raw)
	return true
}
