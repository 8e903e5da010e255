package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// clockPattern строгий 24-часовой формат HH:MM
var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// TimeSlot один учебный интервал дня
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseClock переводит HH:MM в минуты от начала суток
func ParseClock(value string) (int, error) {
	m := clockPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm, nil
}

// FormatClock обратная операция к ParseClock
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Minutes возвращает начало и конец слота в минутах
func (s TimeSlot) Minutes() (start, end int, err error) {
	start, err = ParseClock(s.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(s.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (s TimeSlot) String() string {
	return s.Start + "–" + s.End
}
