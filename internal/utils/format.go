package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var swedishMonths = [...]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

// DecimalComma rounds v to one decimal and writes it with a decimal comma:
// 21.46 -> "21,5".
func DecimalComma(v float64) string {
	s := strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
	if s == "-0.0" {
		s = "0.0"
	}
	return strings.Replace(s, ".", ",", 1)
}

func SwedishMonth(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return swedishMonths[m-1]
}

// SwedishDay formats "2 januari".
func SwedishDay(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), SwedishMonth(t.Month()))
}

// SwedishDate formats "2 januari 2025".
func SwedishDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), SwedishMonth(t.Month()), t.Year())
}

// StatusHeading formats "Kl 14:00 (2/1)".
func StatusHeading(t time.Time) string {
	return fmt.Sprintf("Kl %s (%d/%d)", t.Format("15:04"), t.Day(), int(t.Month()))
}

// HourDayLabel formats "14:00 - 2/1".
func HourDayLabel(t time.Time) string {
	return fmt.Sprintf("%s - %d/%d", t.Format("15:04"), t.Day(), int(t.Month()))
}
