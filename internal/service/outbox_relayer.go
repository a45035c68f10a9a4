package service

import (
	"context"
	"log"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/pkg"
	"phlock_server/internal/repository/mysql"
)

type Sender func(ctx context.Context, ob *model.PushOutbox) error

// OutboxRelayer 推送事件投递器，从 outbox 表批量捞 pending 事件交给下游
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: mysql.DB},
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

// Run 启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
	}
}

// KafkaSender 推送事件进 kafka，下游推送服务按用户分区消费
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.PushOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.UserID), []byte(ob.Payload))
	}
}

// LogSender 默认 sender（占位）：kafka 不可用时先打印
func LogSender(ctx context.Context, ob *model.PushOutbox) error {
	log.Printf("PUSH SEND type=%s user=%d payload=%s", ob.EventType, ob.UserID, ob.Payload)
	return nil
}
