package common

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/xuanlam2007/scholium/internal/model"
)

// Константы размеров и отступов
const (
	imageWidth       = 1400
	headerHeight     = 90
	dayHeaderHeight  = 40
	leftLabelsWidth  = 140
	rowHeight        = 80
	dayPaddingX      = 6
	cellPaddingY     = 4
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
	titleScale       = 2.0
	labelScale       = 1.3
	maxTitleRunes    = 22
)

// Цветовая схема
var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	slotLabelColor = color.RGBA{110, 115, 120, 200}
	gridLineColor  = color.NRGBA{150, 150, 150, 255}
	todayBgColor   = color.NRGBA{255, 99, 71, 90}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{220, 220, 220, 255}

	itemTextColor   = color.RGBA{20, 24, 28, 230}
	itemDoneColor   = color.RGBA{158, 158, 158, 200}
	itemShadowColor = color.RGBA{0, 0, 0, 20}
	defaultSubject  = color.RGBA{59, 130, 246, 220} // #3b82f6
)

// Timetable данные для отрисовки недели группы
type Timetable struct {
	Title    string
	Week     time.Time // любая дата внутри недели
	Slots    []model.TimeSlot
	Homework []*model.Homework
	Subjects []*model.Subject
}

// weekBounds содержит границы недели
type weekBounds struct {
	start time.Time
	end   time.Time
}

// GenerateTimetableImage рисует сетку слотов на неделю с заданиями в ячейках.
// Задание попадает в слот, внутри которого начинается его start_time;
// задания без времени выводятся в первом слоте дня сдачи.
func GenerateTimetableImage(t Timetable) ([]byte, error) {
	week := normalizeToWeekBounds(t.Week)
	today := normalizeToDay(time.Now())

	height := headerHeight + dayHeaderHeight + rowHeight*len(t.Slots)
	dc := gg.NewContext(imageWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dayWidth := (imageWidth - leftLabelsWidth) / totalDaysInWeek
	colors := subjectColors(t.Subjects)
	cells := placeHomework(t.Slots, t.Homework, week)

	drawHeader(dc, t.Title, week)
	drawSlotLabels(dc, t.Slots)
	for day := 0; day < totalDaysInWeek; day++ {
		date := week.start.AddDate(0, 0, day)
		x := float64(leftLabelsWidth + day*dayWidth)
		drawDayColumn(dc, date, x, dayWidth, height, day, isSameDay(date, today))
		for row := range t.Slots {
			drawCell(dc, cells[cellKey{day, row}], colors, x, row, dayWidth)
		}
	}
	drawGrid(dc, len(t.Slots), height)

	return encodeImage(dc)
}

type cellKey struct {
	day int
	row int
}

// placeHomework раскладывает задания недели по ячейкам день x слот
func placeHomework(slots []model.TimeSlot, homework []*model.Homework, week weekBounds) map[cellKey][]*model.Homework {
	cells := make(map[cellKey][]*model.Homework)
	if len(slots) == 0 {
		return cells
	}
	for _, hw := range homework {
		due := normalizeToDay(hw.DueDate.In(week.start.Location()))
		if due.Before(week.start) || due.After(week.end) {
			continue
		}
		day := int(due.Sub(week.start).Hours() / 24)
		key := cellKey{day: day, row: slotRow(slots, hw.StartTime)}
		cells[key] = append(cells[key], hw)
	}
	return cells
}

// slotRow номер слота, содержащего start; иначе первый
func slotRow(slots []model.TimeSlot, start *string) int {
	if start == nil {
		return 0
	}
	minutes, err := model.ParseClock(*start)
	if err != nil {
		return 0
	}
	for i, slot := range slots {
		from, to, err := slot.Minutes()
		if err != nil {
			continue
		}
		if minutes >= from && minutes < to {
			return i
		}
	}
	return 0
}

// subjectColors цвета предметов по id
func subjectColors(subjects []*model.Subject) map[int64]color.Color {
	colors := make(map[int64]color.Color, len(subjects))
	for _, s := range subjects {
		if c, ok := parseHexColor(s.Color); ok {
			colors[s.ID] = c
		}
	}
	return colors
}

func parseHexColor(hex string) (color.RGBA, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 220}, true
}

// normalizeToWeekBounds нормализует дату к границам недели (Пн-Вс)
func normalizeToWeekBounds(date time.Time) weekBounds {
	normalized := normalizeToDay(date)

	daysSinceMonday := int(normalized.Weekday()) - 1
	if normalized.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	start := normalized.AddDate(0, 0, -daysSinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

// normalizeToDay нормализует время к началу дня
func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// drawHeader рисует название группы и даты недели
func drawHeader(dc *gg.Context, title string, week weekBounds) {
	header := fmt.Sprintf("%s  %s - %s", title, week.start.Format("02.01"), week.end.Format("02.01.2006"))

	dc.Push()
	dc.Scale(titleScale, titleScale)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(header, 20/titleScale, float64(headerHeight)/2/titleScale, 0, 0.5)
	dc.Pop()
}

// drawSlotLabels рисует колонку с номерами и временем слотов
func drawSlotLabels(dc *gg.Context, slots []model.TimeSlot) {
	dc.SetColor(slotLabelColor)
	top := float64(headerHeight + dayHeaderHeight)
	for i, slot := range slots {
		y := top + float64(i*rowHeight) + float64(rowHeight)/2
		dc.DrawStringAnchored(strconv.Itoa(i+1), 16, y, 0, 0.5)
		dc.DrawStringAnchored(slot.Start, float64(leftLabelsWidth)-12, y-9, 1, 0.5)
		dc.DrawStringAnchored(slot.End, float64(leftLabelsWidth)-12, y+9, 1, 0.5)
	}
}

// drawDayColumn рисует фон дня и его заголовок
func drawDayColumn(dc *gg.Context, date time.Time, x float64, dayWidth, height, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, float64(headerHeight), float64(dayWidth), float64(height-headerHeight))
	dc.Fill()

	dc.Push()
	dc.Scale(labelScale, labelScale)
	dc.SetColor(textColor)
	label := date.Weekday().String()[:3] + " " + date.Format("02.01")
	cx := (x + float64(dayWidth)/2) / labelScale
	cy := (float64(headerHeight) + float64(dayHeaderHeight)/2) / labelScale
	dc.DrawStringAnchored(label, cx, cy, 0.5, 0.5)
	dc.Pop()
}

// drawCell рисует задания одной ячейки столбиком
func drawCell(dc *gg.Context, items []*model.Homework, colors map[int64]color.Color, x float64, row, dayWidth int) {
	if len(items) == 0 {
		return
	}
	top := float64(headerHeight+dayHeaderHeight+row*rowHeight) + cellPaddingY
	itemHeight := (float64(rowHeight) - 2*cellPaddingY) / float64(len(items))
	width := float64(dayWidth - 2*dayPaddingX)

	for i, hw := range items {
		y := top + float64(i)*itemHeight

		dc.SetColor(itemShadowColor)
		dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, y+shadowOffset, width, itemHeight-2, slotBorderRadius)
		dc.Fill()

		dc.SetColor(itemColor(hw, colors))
		dc.DrawRoundedRectangle(x+dayPaddingX, y, width, itemHeight-2, slotBorderRadius)
		dc.Fill()

		dc.SetColor(itemTextColor)
		dc.DrawStringAnchored(shorten(hw.Title, maxTitleRunes), x+dayPaddingX+6, y+itemHeight/2, 0, 0.5)
	}
}

func itemColor(hw *model.Homework, colors map[int64]color.Color) color.Color {
	if hw.Completed {
		return itemDoneColor
	}
	if hw.SubjectID != nil {
		if c, ok := colors[*hw.SubjectID]; ok {
			return c
		}
	}
	return defaultSubject
}

func shorten(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// drawGrid горизонтальные линии между слотами
func drawGrid(dc *gg.Context, rows, height int) {
	dc.SetLineWidth(0.5)
	dc.SetColor(gridLineColor)
	top := float64(headerHeight + dayHeaderHeight)
	for i := 0; i <= rows; i++ {
		y := top + float64(i*rowHeight)
		dc.DrawLine(0, y, imageWidth, y)
		dc.Stroke()
	}
	dc.DrawLine(leftLabelsWidth, float64(headerHeight), leftLabelsWidth, float64(height))
	dc.Stroke()
}

// encodeImage кодирует изображение в PNG
func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode timetable png: %w", err)
	}
	return buf.Bytes(), nil
}
