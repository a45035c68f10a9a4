package service

import (
	"context"
	"errors"
	"time"

	"phlock_server/internal/pkg"
	"phlock_server/internal/repository/mysql"
)

// TrackResolver 曲库解析函数，生产环境接 pkg.CatalogClient.Resolve
type TrackResolver func(ctx context.Context, trackRef string) (*pkg.TrackInfo, error)

type PickService struct {
	pickRepo *mysql.DailyPickRepository
	userRepo *mysql.UserRepository
	resolve  TrackResolver

	now func() time.Time
}

func NewPickService(resolve TrackResolver) *PickService {
	return &PickService{
		pickRepo: &mysql.DailyPickRepository{DB: mysql.DB},
		userRepo: &mysql.UserRepository{DB: mysql.DB},
		resolve:  resolve,
		now:      time.Now,
	}
}

// RecordPick 记录今天这首歌。曲库挂了但客户端带了缓存歌名就降级落库，
// 两头都没有才报 track unavailable。
func (s *PickService) RecordPick(ctx context.Context, userID uint64, trackRef, cachedName, cachedArtist string) (bool, error) {
	if userID == 0 || trackRef == "" {
		return false, errors.New("invalid params")
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return false, err
	}

	track := mysql.TrackFields{Ref: trackRef}
	info, err := s.resolve(ctx, trackRef)
	if err == nil {
		track.Name = info.Name
		track.Artist = info.Artist
		track.ArtworkURL = info.ArtworkURL
	} else {
		if cachedName == "" {
			return false, pkg.ErrTrackUnavailable
		}
		track.Name = cachedName
		track.Artist = cachedArtist
	}

	date := pkg.LocalDate(s.now(), user.Timezone)
	return s.pickRepo.CreatePick(ctx, userID, date, track)
}

// GetEffectiveStreak 当前有效连续天数
func (s *PickService) GetEffectiveStreak(ctx context.Context, userID uint64) (int, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return 0, err
	}
	today := pkg.LocalDate(s.now(), user.Timezone)
	return EffectiveStreak(user.StreakCount, user.LastPickDate, today), nil
}

// EffectiveStreak 读时投影：最近一次选歌超过一天就按 0 展示，
// 存储里的计数不动，等下次选歌时写路径自然重置。
func EffectiveStreak(streakCount int, lastPickDate *time.Time, today time.Time) int {
	if lastPickDate == nil {
		return 0
	}
	last := *lastPickDate
	ly, lm, ld := last.Date()
	ty, tm, td := today.Date()
	lastDay := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	todayDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	if int(todayDay.Sub(lastDay).Hours()/24) > 1 {
		return 0
	}
	return streakCount
}
