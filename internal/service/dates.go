package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/cabinstay/internal/constants"
)

// ParseDate 解析 YYYY-MM-DD 日期（UTC）
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrStatDateInvalid, raw)
	}
	return parsed, nil
}

// truncateDay 截断到 UTC 零点
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
