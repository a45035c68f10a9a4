package service

import (
	"context"
	"errors"
	"time"

	"phlock_server/internal/model"
	"phlock_server/internal/pkg"
	"phlock_server/internal/repository/mysql"
	"phlock_server/internal/repository/redis"
)

// 换人请求的三种出口
const (
	SwapApplied   = "applied"
	SwapScheduled = "scheduled"
)

var ErrInvalidPosition = errors.New("invalid position")

type PhlockService struct {
	followRepo *mysql.FollowRepository
	pickRepo   *mysql.DailyPickRepository
	mutRepo    *mysql.MutationRepository
	userRepo   *mysql.UserRepository
	reachCache *redis.ReachCacheRepository

	now func() time.Time
}

func NewPhlockService() *PhlockService {
	return &PhlockService{
		followRepo: &mysql.FollowRepository{DB: mysql.DB},
		pickRepo:   &mysql.DailyPickRepository{DB: mysql.DB},
		mutRepo:    &mysql.MutationRepository{DB: mysql.DB},
		userRepo:   &mysql.UserRepository{DB: mysql.DB},
		reachCache: redis.NewReachCacheRepository(),
		now:        time.Now,
	}
}

// AddMember 空槽直接加人，不走延迟队列
func (s *PhlockService) AddMember(ctx context.Context, ownerID, memberID uint64, position int8) error {
	if ownerID == 0 || memberID == 0 || ownerID == memberID {
		return errors.New("invalid user id")
	}
	if position < 1 || position > mysql.PhlockCapacity {
		return ErrInvalidPosition
	}
	firstAdd, err := s.followRepo.AddToPhlock(ctx, ownerID, memberID, position)
	if err != nil {
		return err
	}
	if firstAdd && s.reachCache != nil {
		// 账本多了一条，删计数Key交给读侧重建
		_ = s.reachCache.DeleteReach(ctx, memberID)
	}
	return nil
}

// SwapResult 换人请求的同步返回
type SwapResult struct {
	Outcome      string     // applied / scheduled
	MutationID   string     // scheduled 时的排期单号
	ScheduledFor *time.Time // scheduled 时的执行时刻
}

// RequestSwap 换人或纯移除（newMemberID=nil）。
// 规则：被换掉的成员今天还没发歌就立即生效；已经发了歌则保留到今天结束，
// 排一条零点变更，第二天圈子才换血。零点按请求者入队时的时区算死。
func (s *PhlockService) RequestSwap(ctx context.Context, userID, oldMemberID uint64, newMemberID *uint64) (*SwapResult, error) {
	if userID == 0 || oldMemberID == 0 {
		return nil, errors.New("invalid user id")
	}
	if newMemberID != nil && (*newMemberID == 0 || *newMemberID == userID || *newMemberID == oldMemberID) {
		return nil, errors.New("invalid new member")
	}

	// 同步校验，不过关的请求不留任何痕迹
	position, err := s.followRepo.CurrentPosition(ctx, userID, oldMemberID)
	if err != nil {
		return nil, err
	}
	if newMemberID != nil {
		following, err := s.followRepo.IsFollowing(ctx, userID, *newMemberID)
		if err != nil {
			return nil, err
		}
		if !following {
			return nil, mysql.ErrNotFollowing
		}
		if _, err = s.followRepo.CurrentPosition(ctx, userID, *newMemberID); err == nil {
			return nil, mysql.ErrAlreadyInPhlock
		} else if !errors.Is(err, mysql.ErrNotInPhlock) {
			return nil, err
		}
	}

	// 选没选歌按被换成员自己的日历日判断
	oldMember, err := s.userRepo.FindByID(oldMemberID)
	if err != nil {
		return nil, err
	}
	picked, err := s.pickRepo.HasPicked(ctx, oldMemberID, pkg.LocalDate(s.now(), oldMember.Timezone))
	if err != nil {
		return nil, err
	}

	if !picked {
		if _, err = s.followRepo.RemoveFromPhlock(ctx, userID, oldMemberID); err != nil {
			return nil, err
		}
		if newMemberID != nil {
			firstAdd, err := s.followRepo.AddToPhlock(ctx, userID, *newMemberID, position)
			if err != nil {
				// 老成员已移除、新成员没放进去：槽位留空，交给客户端提示补位
				return nil, err
			}
			if firstAdd && s.reachCache != nil {
				_ = s.reachCache.DeleteReach(ctx, *newMemberID)
			}
		}
		return &SwapResult{Outcome: SwapApplied}, nil
	}

	requester, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	scheduledFor := pkg.NextLocalMidnight(s.now(), requester.Timezone)
	publicID, err := s.mutRepo.Enqueue(ctx, userID, oldMemberID, newMemberID, scheduledFor)
	if err != nil {
		return nil, err
	}
	return &SwapResult{
		Outcome:      SwapScheduled,
		MutationID:   publicID,
		ScheduledFor: &scheduledFor,
	}, nil
}

// CancelMutation worker 认领前可撤回，认领后返回 false
func (s *PhlockService) CancelMutation(ctx context.Context, userID uint64, publicID string) (bool, error) {
	return s.mutRepo.Cancel(ctx, publicID, userID)
}

// ListMutations 用户的变更记录
func (s *PhlockService) ListMutations(ctx context.Context, userID uint64, limit int) ([]model.ScheduledMutation, error) {
	return s.mutRepo.ListByUser(ctx, userID, limit)
}

// ListMembers 当前 phlock 成员边，按槽位排序
func (s *PhlockService) ListMembers(ctx context.Context, ownerID uint64) ([]model.Follow, error) {
	return s.followRepo.ListPhlock(ctx, ownerID)
}

// FeedItem 圈子信息流里的一格
type FeedItem struct {
	Position        int8             `json:"position"`
	MemberID        uint64           `json:"member_id"`
	Username        string           `json:"username"`
	Pick            *model.DailyPick `json:"pick,omitempty"`
	EffectiveStreak int              `json:"effective_streak"`
}

// Feed 今天圈子里每个人发了什么歌。没发歌的格子 Pick 为空，
// 连续天数用读时投影，不落库。
func (s *PhlockService) Feed(ctx context.Context, ownerID uint64) ([]FeedItem, error) {
	owner, err := s.userRepo.FindByID(ownerID)
	if err != nil {
		return nil, err
	}
	members, err := s.followRepo.ListPhlock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.FolloweeID)
	}
	today := pkg.LocalDate(s.now(), owner.Timezone)
	picks, err := s.pickRepo.ListPicks(ctx, ids, today)
	if err != nil {
		return nil, err
	}
	pickByUser := make(map[uint64]*model.DailyPick, len(picks))
	for i := range picks {
		pickByUser[picks[i].UserID] = &picks[i]
	}

	items := make([]FeedItem, 0, len(members))
	for _, m := range members {
		member, err := s.userRepo.FindByID(m.FolloweeID)
		if err != nil {
			continue
		}
		var pos int8
		if m.PhlockPosition != nil {
			pos = *m.PhlockPosition
		}
		items = append(items, FeedItem{
			Position:        pos,
			MemberID:        m.FolloweeID,
			Username:        member.Username,
			Pick:            pickByUser[m.FolloweeID],
			EffectiveStreak: EffectiveStreak(member.StreakCount, member.LastPickDate, today),
		})
	}
	return items, nil
}
