package util

import (
	"fmt"
	"strings"
	"time"
)

type DueKind string

const (
	DueNone     DueKind = "none"
	DueDate     DueKind = "date"
	DueDateTime DueKind = "datetime"
	DueTimeOnly DueKind = "timeonly"
)

// 只有时间的截止时间以 1970-01-01 作为日期部分存储
var sentinelYear, sentinelMonth, sentinelDay = 1970, time.January, 1

// DueSpec 截止时间的显式表示，取代散落各处的哨兵日期判断
type DueSpec struct {
	Kind DueKind
	// TimeOnly 时只有时分秒有意义
	At time.Time
}

// NormalizeDue 合并日期和时间输入：
// 两者都有 -> 当地时间 date T clock；只有日期 -> 当天 23:59:00；
// 只有时间 -> 1970-01-01 的该时刻；都没有 -> nil
func NormalizeDue(date, clock string, loc *time.Location) (*time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if loc == nil {
		loc = time.Local
	}

	var d time.Time
	if date != "" {
		var err error
		d, err = time.ParseInLocation(DateFormat, date, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrInvalidDueDate, date)
		}
	}

	var h, m, s int
	if clock != "" {
		c, err := parseClock(clock)
		if err != nil {
			return nil, err
		}
		h, m, s = c.Hour(), c.Minute(), c.Second()
	}

	var t time.Time
	switch {
	case date != "" && clock != "":
		t = time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, loc)
	case date != "":
		t = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 0, 0, loc)
	case clock != "":
		t = time.Date(sentinelYear, sentinelMonth, sentinelDay, h, m, s, 0, loc)
	default:
		return nil, nil
	}
	return &t, nil
}

// ParseDue 解析前端已合并好的截止时间：RFC3339、本地 "2006-01-02T15:04[:05]"、
// 纯日期或纯时间，空串返回 nil
func ParseDue(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.In(loc)
		return &t, nil
	}
	for _, layout := range []string{LocalSecFormat, LocalMinFormat, TimeFormat} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t, nil
		}
	}
	if _, err := time.ParseInLocation(DateFormat, value, loc); err == nil {
		return NormalizeDue(value, "", loc)
	}
	if _, err := parseClock(value); err == nil {
		return NormalizeDue("", value, loc)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDueDate, value)
}

func parseClock(clock string) (time.Time, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if c, err := time.Parse(layout, clock); err == nil {
			return c, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidDueDate, clock)
}

// DueSpecFromStored 识别数据库中保存的截止时间，唯一识别哨兵日期的地方
func DueSpecFromStored(t *time.Time) DueSpec {
	if t == nil || t.IsZero() {
		return DueSpec{Kind: DueNone}
	}
	local := t.In(time.Local)
	y, mo, d := local.Date()
	if y == sentinelYear && mo == sentinelMonth && d == sentinelDay {
		return DueSpec{Kind: DueTimeOnly, At: local}
	}
	// 时间戳里不保存类型：显式提交的 "日期 + 23:59" 与只有日期无法区分，一律按 DueDate 处理
	if local.Hour() == 23 && local.Minute() == 59 && local.Second() == 0 {
		return DueSpec{Kind: DueDate, At: local}
	}
	return DueSpec{Kind: DueDateTime, At: local}
}

// Deadline 判断是否截止所用的时间点；只有时间时为今天该时刻
func (d DueSpec) Deadline(now time.Time) *time.Time {
	switch d.Kind {
	case DueNone:
		return nil
	case DueTimeOnly:
		at := d.onDay(now)
		return &at
	default:
		at := d.At
		return &at
	}
}

// Resolve 返回下一次截止时间；只有时间时取今天该时刻，已过则顺延到明天
func (d DueSpec) Resolve(now time.Time) *time.Time {
	switch d.Kind {
	case DueNone:
		return nil
	case DueTimeOnly:
		at := d.onDay(now)
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return &at
	default:
		at := d.At
		return &at
	}
}

// Passed 是否已过截止时间；只有时间时只比较当天的时刻
func (d DueSpec) Passed(now time.Time) bool {
	switch d.Kind {
	case DueNone:
		return false
	case DueTimeOnly:
		return now.After(d.onDay(now))
	default:
		return now.After(d.At)
	}
}

func (d DueSpec) onDay(now time.Time) time.Time {
	y, m, day := now.Date()
	return time.Date(y, m, day, d.At.Hour(), d.At.Minute(), d.At.Second(), 0, now.Location())
}

// String 用于公告后缀等展示场景
func (d DueSpec) String() string {
	switch d.Kind {
	case DueNone:
		return "No due date"
	case DueTimeOnly:
		return d.At.Format(ClockFormat)
	case DueDate:
		return d.At.Format("Jan 2, 2006")
	default:
		return d.At.Format(DisplayFormat)
	}
}

// DueInfo API 响应中的截止时间字段
// closed 为真时 effectiveDue 不晚于当前时间；只有时间的截止另给出顺延后的 nextDue
type DueInfo struct {
	DueKind      DueKind    `json:"dueKind"`
	EffectiveDue *time.Time `json:"effectiveDue"`
	NextDue      *time.Time `json:"nextDue,omitempty"`
	Closed       bool       `json:"closed"`
}

func NewDueInfo(stored *time.Time, now time.Time) DueInfo {
	spec := DueSpecFromStored(stored)
	info := DueInfo{
		DueKind:      spec.Kind,
		EffectiveDue: spec.Deadline(now),
		Closed:       spec.Passed(now),
	}
	if spec.Kind == DueTimeOnly {
		info.NextDue = spec.Resolve(now)
	}
	return info
}
