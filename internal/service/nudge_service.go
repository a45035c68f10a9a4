package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phlock_server/internal/pkg"
	"phlock_server/internal/repository/mysql"
)

type NudgeService struct {
	notifRepo  *mysql.NotificationRepository
	followRepo *mysql.FollowRepository
	userRepo   *mysql.UserRepository

	now func() time.Time
}

func NewNudgeService() *NudgeService {
	return &NudgeService{
		notifRepo:  &mysql.NotificationRepository{DB: mysql.DB},
		followRepo: &mysql.FollowRepository{DB: mysql.DB},
		userRepo:   &mysql.UserRepository{DB: mysql.DB},
		now:        time.Now,
	}
}

// SendNudge 催圈子里的人发歌。只有把对方放进自己 phlock 的人才有资格催；
// 同一天不管多少人催，收件方只看到一条聚合通知。
func (s *NudgeService) SendNudge(ctx context.Context, actorID, recipientID uint64) error {
	if actorID == 0 || recipientID == 0 {
		return errors.New("invalid user id")
	}
	if actorID == recipientID {
		return errors.New("cannot nudge self")
	}
	if _, err := s.followRepo.CurrentPosition(ctx, actorID, recipientID); err != nil {
		return err
	}

	recipient, err := s.userRepo.FindByID(recipientID)
	if err != nil {
		return err
	}
	// 聚合窗口按收件方自己的日历日
	date := pkg.LocalDate(s.now(), recipient.Timezone)
	_, err = s.notifRepo.UpsertNudge(ctx, actorID, recipientID, date)
	return err
}

// NotificationView 通知展示结构
type NotificationView struct {
	Date     time.Time `json:"date"`
	ActorIDs []uint64  `json:"actor_ids"`
	Summary  string    `json:"summary"`
}

// ListNotifications 通知列表，带"谁谁和另外N人催你发歌"的摘要
func (s *NudgeService) ListNotifications(ctx context.Context, recipientID uint64, limit int) ([]NotificationView, error) {
	rows, err := s.notifRepo.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]NotificationView, 0, len(rows))
	for i := range rows {
		actors := rows[i].Actors()
		views = append(views, NotificationView{
			Date:     rows[i].NotifyDate,
			ActorIDs: actors,
			Summary:  s.nudgeSummary(actors),
		})
	}
	return views, nil
}

// nudgeSummary 最多点两个名，其余折叠成"另外N人"
func (s *NudgeService) nudgeSummary(actors []uint64) string {
	names := make([]string, 0, 2)
	for _, id := range actors {
		if len(names) == 2 {
			break
		}
		u, err := s.userRepo.FindByID(id)
		if err != nil {
			continue
		}
		names = append(names, u.Username)
	}
	if len(names) == 0 {
		return ""
	}
	rest := len(actors) - len(names)
	switch {
	case rest > 0 && len(names) == 2:
		return fmt.Sprintf("%s、%s 和另外 %d 人催你发歌", names[0], names[1], rest)
	case len(names) == 2:
		return fmt.Sprintf("%s、%s 催你发歌", names[0], names[1])
	case rest > 0:
		return fmt.Sprintf("%s 和另外 %d 人催你发歌", names[0], rest)
	default:
		return fmt.Sprintf("%s 催你发歌", names[0])
	}
}
