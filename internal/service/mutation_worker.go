package service

import (
	"context"
	"errors"
	"log"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/repository/mysql"
)

// MutationWorker 到点执行零点变更的后台任务。
// 先认领再处理：认领是条件更新，和用户取消互斥；终态行永远不会被再碰。
type MutationWorker struct {
	mutRepo    *mysql.MutationRepository
	followRepo *mysql.FollowRepository
	batchSize  int
	interval   time.Duration

	now func() time.Time
}

func NewMutationWorker() *MutationWorker {
	return &MutationWorker{
		mutRepo:    &mysql.MutationRepository{DB: mysql.DB},
		followRepo: &mysql.FollowRepository{DB: mysql.DB},
		batchSize:  200,
		interval:   time.Minute, // 至少每分钟扫一遍
		now:        time.Now,
	}
}

// Run 启动器
func (w *MutationWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce 扫一批到期行，逐条认领执行
func (w *MutationWorker) DrainOnce(ctx context.Context) {
	rows, err := w.mutRepo.ListDue(ctx, w.now(), w.batchSize)
	if err != nil {
		log.Printf("mutation list due err: %v", err)
		return
	}
	for i := range rows {
		m := rows[i]
		claimed, err := w.mutRepo.Claim(ctx, m.ID, w.now())
		if err != nil {
			log.Printf("mutation claim err: id=%d %v", m.ID, err)
			continue
		}
		if !claimed {
			// 被别的 worker 抢了或刚被取消
			continue
		}
		w.process(ctx, &m)
	}
}

// process 执行一条已认领的变更。瞬态错误释放认领，下一轮重试；
// 注意不对称失败：老成员先移除，之后换人失败不回滚，槽位留空，
// 补偿性重加可能和其他并发修改打架，交给 owner 自己补位。
func (w *MutationWorker) process(ctx context.Context, m *model.ScheduledMutation) {
	position, err := w.followRepo.CurrentPosition(ctx, m.UserID, m.OldMemberID)
	if err != nil {
		if errors.Is(err, mysql.ErrNotInPhlock) {
			// 执行前槽位已经被别的操作腾掉了，不重试
			w.fail(ctx, m, "old member not found in phlock")
			return
		}
		log.Printf("mutation resolve err: id=%d %v", m.ID, err)
		w.unclaim(ctx, m)
		return
	}

	if _, err = w.followRepo.RemoveFromPhlock(ctx, m.UserID, m.OldMemberID); err != nil {
		if errors.Is(err, mysql.ErrNotInPhlock) {
			w.fail(ctx, m, "old member not found in phlock")
			return
		}
		log.Printf("mutation remove err: id=%d %v", m.ID, err)
		w.unclaim(ctx, m)
		return
	}

	if m.NewMemberID != nil {
		following, err := w.followRepo.IsFollowing(ctx, m.UserID, *m.NewMemberID)
		if err != nil {
			// 老成员已移除，重试会发现槽位已空、把行落成 failed，不会悬着
			log.Printf("mutation follow check err: id=%d %v", m.ID, err)
			w.unclaim(ctx, m)
			return
		}
		if !following {
			// 入队后取关了新成员：老成员保持已移除，这是故意的不对称失败
			w.fail(ctx, m, "not following new member")
			return
		}
		if _, err = w.followRepo.AddToPhlock(ctx, m.UserID, *m.NewMemberID, position); err != nil {
			w.fail(ctx, m, err.Error())
			return
		}
	}

	if err = w.mutRepo.MarkCompleted(ctx, m); err != nil {
		log.Printf("mutation complete err: id=%d %v", m.ID, err)
	}
}

func (w *MutationWorker) fail(ctx context.Context, m *model.ScheduledMutation, reason string) {
	if err := w.mutRepo.MarkFailed(ctx, m, reason); err != nil {
		log.Printf("mutation fail mark err: id=%d %v", m.ID, err)
	}
}

func (w *MutationWorker) unclaim(ctx context.Context, m *model.ScheduledMutation) {
	if err := w.mutRepo.Unclaim(ctx, m.ID); err != nil {
		log.Printf("mutation unclaim err: id=%d %v", m.ID, err)
	}
}
