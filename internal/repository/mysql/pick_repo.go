package mysql

import (
	"context"
	"errors"
	"time"

	"phlock_server/internal/model"

	"gorm.io/gorm"
)

type DailyPickRepository struct {
	DB *gorm.DB
}

// TrackFields 选歌时落库的曲目信息（已经过曲库解析或客户端缓存兜底）
type TrackFields struct {
	Ref        string
	Name       string
	Artist     string
	ArtworkURL string
}

// CreatePick 记录某天的选歌。同一天重复选只替换曲目字段，不动连续计数。
// 连续计数规则在同一事务内推进：首次=1，隔天+1，断档重置为1。
func (r *DailyPickRepository) CreatePick(ctx context.Context, userID uint64, date time.Time, track TrackFields) (bool, error) {
	date = dateOnly(date)
	var created bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		var pick model.DailyPick
		err := tx.Where("user_id=? AND pick_date=?", userID, date).First(&pick).Error
		if err == nil {
			// 同日重选：只换歌，连续计数不变
			return tx.Model(&model.DailyPick{}).
				Where("id=?", pick.ID).
				Updates(map[string]any{
					"track_ref":   track.Ref,
					"track_name":  track.Name,
					"artist_name": track.Artist,
					"artwork_url": track.ArtworkURL,
				}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err = tx.Create(&model.DailyPick{
			UserID:     userID,
			PickDate:   date,
			TrackRef:   track.Ref,
			TrackName:  track.Name,
			ArtistName: track.Artist,
			ArtworkURL: track.ArtworkURL,
		}).Error; err != nil {
			return err
		}
		created = true

		streak := 1
		if user.LastPickDate != nil {
			switch daysBetween(dateOnly(*user.LastPickDate), date) {
			case 0:
				// 计数已包含今天（理论上走不到：上面已按 (user, date) 命中）
				streak = user.StreakCount
			case 1:
				streak = user.StreakCount + 1
			}
		}
		return tx.Model(&model.User{}).
			Where("id=?", userID).
			Updates(map[string]any{
				"streak_count":   streak,
				"last_pick_date": date,
			}).Error
	})
	return created, err
}

// HasPicked 判断某天是否已经选过歌，入队逻辑靠它决定立即执行还是延迟到零点
func (r *DailyPickRepository) HasPicked(ctx context.Context, userID uint64, date time.Time) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&model.DailyPick{}).
		Where("user_id=? AND pick_date=?", userID, dateOnly(date)).
		Count(&n).Error
	return n > 0, err
}

// GetPick 查某人某天的选歌
func (r *DailyPickRepository) GetPick(ctx context.Context, userID uint64, date time.Time) (*model.DailyPick, error) {
	var pick model.DailyPick
	err := r.DB.WithContext(ctx).
		Where("user_id=? AND pick_date=?", userID, dateOnly(date)).
		First(&pick).Error
	return &pick, err
}

// ListPicks 批量查一组用户某天的选歌，供圈子信息流使用
func (r *DailyPickRepository) ListPicks(ctx context.Context, userIDs []uint64, date time.Time) ([]model.DailyPick, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var picks []model.DailyPick
	err := r.DB.WithContext(ctx).
		Where("user_id IN ? AND pick_date=?", userIDs, dateOnly(date)).
		Find(&picks).Error
	return picks, err
}

// dateOnly 归一化到 UTC 零点，只保留日历日
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween a 到 b 相差的日历天数（b 在后为正）
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
