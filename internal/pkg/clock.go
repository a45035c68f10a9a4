package pkg

import "time"

// LoadLocation 解析用户时区，非法值回退 UTC
func LoadLocation(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDate 用户时区下的当前日历日（保留时区信息，归一化交给存储层）
func LocalDate(now time.Time, tz string) time.Time {
	loc := LoadLocation(tz)
	t := now.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NextLocalMidnight 下一个本地零点，延迟变更的执行时刻。
// 入队时按当前时区算死，之后改时区不重排。
func NextLocalMidnight(now time.Time, tz string) time.Time {
	loc := LoadLocation(tz)
	t := now.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
