package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// ErrNothingToDraw is returned for an empty preview.
var ErrNothingToDraw = errors.New("no sessions to draw")

// Layout
const (
	imageWidth       = 980
	headerHeight     = 90
	weekdayRowHeight = 24
	cellHeight       = 96
	legendHeight     = 48
	marginX          = 20
	cellPadding      = 6
	slotBorderRadius = 6.0
	shadowOffset     = 2.0
	daysInWeek       = 7
	// MaxWeeks caps the number of calendar rows drawn.
	MaxWeeks = 8
)

// Colour scheme
var (
	bgColor         = color.RGBA{245, 246, 248, 255}
	textColor       = color.RGBA{60, 64, 70, 255}
	mutedTextColor  = color.RGBA{120, 125, 130, 255}
	gridLineColor   = color.NRGBA{200, 200, 200, 255}
	weekdayBgColor  = color.NRGBA{236, 238, 240, 255}
	weekendBgColor  = color.NRGBA{222, 224, 228, 255}
	outsideBgColor  = color.NRGBA{248, 248, 248, 255}
	sessionColor    = color.RGBA{133, 193, 85, 230}
	clashColor      = color.RGBA{255, 140, 140, 255}
	slotTextColor   = color.RGBA{20, 24, 28, 230}
	slotShadowColor = color.RGBA{0, 0, 0, 20}
)

type span struct {
	first time.Time // Monday of the first week
	weeks int
	last  time.Time // last day with a session
}

// GenerateImage draws a month-style calendar of the generated sessions.
// Days with a clash are highlighted. Rows beyond MaxWeeks are summarised
// in the header.
func GenerateImage(title string, slots []model.GeneratedSlot, clashes []time.Time) ([]byte, error) {
	if len(slots) == 0 {
		return nil, ErrNothingToDraw
	}

	sp := calendarSpan(slots)
	byDay := groupSlotsByDay(slots)
	clashDays := groupClashDays(clashes, slots[0].AppointmentInstant.Location())

	shown := sp.weeks
	if shown > MaxWeeks {
		shown = MaxWeeks
	}
	hidden := countHidden(slots, sp.first.AddDate(0, 0, shown*daysInWeek))

	height := headerHeight + weekdayRowHeight + shown*cellHeight + legendHeight
	dc := gg.NewContext(imageWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	cellWidth := float64(imageWidth-2*marginX) / daysInWeek

	drawHeader(dc, title, len(slots), hidden)
	drawWeekdayRow(dc, cellWidth)
	for w := 0; w < shown; w++ {
		for d := 0; d < daysInWeek; d++ {
			day := sp.first.AddDate(0, 0, w*daysInWeek+d)
			x := float64(marginX) + float64(d)*cellWidth
			y := float64(headerHeight+weekdayRowHeight) + float64(w*cellHeight)
			key := dayKey(day)
			drawDayCell(dc, day, x, y, cellWidth, day.Before(civil(slots[0].AppointmentInstant)) || day.After(sp.last))
			if daySlots, ok := byDay[key]; ok {
				drawSlots(dc, daySlots, clashDays[key], x, y, cellWidth)
			}
		}
	}
	drawLegend(dc, height)

	return encodeImage(dc)
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// weekStart returns the Monday on or before t.
func weekStart(t time.Time) time.Time {
	d := civil(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func calendarSpan(slots []model.GeneratedSlot) span {
	first := weekStart(slots[0].AppointmentInstant)
	last := civil(slots[len(slots)-1].AppointmentInstant)
	lastWeek := weekStart(last)

	weeks := 1
	for w := first; w.Before(lastWeek); w = w.AddDate(0, 0, daysInWeek) {
		weeks++
	}
	return span{first: first, weeks: weeks, last: last}
}

func groupSlotsByDay(slots []model.GeneratedSlot) map[string][]model.GeneratedSlot {
	byDay := make(map[string][]model.GeneratedSlot)
	for _, slot := range slots {
		key := dayKey(slot.AppointmentInstant)
		byDay[key] = append(byDay[key], slot)
	}
	return byDay
}

func groupClashDays(clashes []time.Time, loc *time.Location) map[string]map[int64]bool {
	days := make(map[string]map[int64]bool)
	for _, c := range clashes {
		key := dayKey(c.In(loc))
		if days[key] == nil {
			days[key] = make(map[int64]bool)
		}
		days[key][c.Unix()] = true
	}
	return days
}

func countHidden(slots []model.GeneratedSlot, cutoff time.Time) int {
	hidden := 0
	for _, slot := range slots {
		if !civil(slot.AppointmentInstant).Before(cutoff) {
			hidden++
		}
	}
	return hidden
}

func drawHeader(dc *gg.Context, title string, total, hidden int) {
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, marginX, headerHeight/3, 0, 0.5)

	summary := fmt.Sprintf("%d session(s)", total)
	if hidden > 0 {
		summary += fmt.Sprintf(", %d more after the last row", hidden)
	}
	dc.SetColor(mutedTextColor)
	dc.DrawStringAnchored(summary, marginX, 2*headerHeight/3, 0, 0.5)
}

func drawWeekdayRow(dc *gg.Context, cellWidth float64) {
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	dc.SetColor(mutedTextColor)
	for i, name := range names {
		x := float64(marginX) + float64(i)*cellWidth + cellWidth/2
		dc.DrawStringAnchored(name, x, headerHeight+weekdayRowHeight/2, 0.5, 0.5)
	}
}

func drawDayCell(dc *gg.Context, day time.Time, x, y, cellWidth float64, outside bool) {
	switch {
	case outside:
		dc.SetColor(outsideBgColor)
	case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
		dc.SetColor(weekendBgColor)
	default:
		dc.SetColor(weekdayBgColor)
	}
	dc.DrawRectangle(x, y, cellWidth, cellHeight)
	dc.Fill()

	dc.SetLineWidth(0.5)
	dc.SetColor(gridLineColor)
	dc.DrawRectangle(x, y, cellWidth, cellHeight)
	dc.Stroke()

	dc.SetColor(mutedTextColor)
	dc.DrawStringAnchored(day.Format("02 Jan"), x+cellPadding, y+cellPadding+6, 0, 0.5)
}

func drawSlots(dc *gg.Context, slots []model.GeneratedSlot, clashes map[int64]bool, x, y, cellWidth float64) {
	slotY := y + 24
	slotHeight := 20.0
	slotWidth := cellWidth - 2*cellPadding

	for _, slot := range slots {
		fill := sessionColor
		if clashes[slot.AppointmentInstant.Unix()] {
			fill = clashColor
		}

		dc.SetColor(slotShadowColor)
		dc.DrawRoundedRectangle(x+cellPadding+shadowOffset, slotY+shadowOffset, slotWidth, slotHeight, slotBorderRadius)
		dc.Fill()

		dc.SetColor(fill)
		dc.DrawRoundedRectangle(x+cellPadding, slotY, slotWidth, slotHeight, slotBorderRadius)
		dc.Fill()

		dc.SetColor(darkenColor(fill, 0.8))
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(x+cellPadding, slotY, slotWidth, slotHeight, slotBorderRadius)
		dc.Stroke()

		label := fmt.Sprintf("%s-%s", slot.AppointmentInstant.Format("15:04"), slot.EndsAt().Format("15:04"))
		dc.SetColor(slotTextColor)
		dc.DrawStringAnchored(label, x+cellPadding+6, slotY+slotHeight/2, 0, 0.35)

		slotY += slotHeight + 4
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawLegend(dc *gg.Context, height int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Session", sessionColor},
		{"Physio already booked", clashColor},
		{"Weekend", weekendBgColor},
	}

	boxW, boxH := 20.0, 14.0
	lx := float64(marginX)
	ly := float64(height) - legendHeight/2 - boxH/2

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(lx, ly, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, lx+boxW+8, ly+boxH/2, 0, 0.35)
		w, _ := dc.MeasureString(item.label)
		lx += boxW + 8 + w + 28
	}
}

func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
