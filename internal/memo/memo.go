// Package memo renders the memo template of a matched override rule.
//
// Templates are mostly literal text with two date-derived helpers:
//
//	{{date "Jan 2006"}}  formats the alert date under a caller layout
//	{{monthBefore}}      yields the ISO date one calendar month prior
//
// monthBefore exists for billing-cycle memos, e.g. cloud usage alerts
// charged one month in arrears.
package memo

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Render expands tmpl against the alert date. Rendering is pure: the
// same template and date always produce the same string.
func Render(tmpl string, alertDate time.Time) (string, error) {
	funcs := template.FuncMap{
		"date": func(layout string) string {
			return alertDate.Format(layout)
		},
		"monthBefore": func() string {
			return MonthBefore(alertDate).Format("2006-01-02")
		},
	}

	t, err := template.New("memo").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("memo: parse template: %w", err)
	}

	var b strings.Builder
	if err := t.Execute(&b, nil); err != nil {
		return "", fmt.Errorf("memo: render template: %w", err)
	}
	return b.String(), nil
}

// MonthBefore returns the calendar date one month before d, clamped to
// the last valid day when the previous month is shorter (2024-03-31
// maps to 2024-02-29, not a normalized March date).
func MonthBefore(d time.Time) time.Time {
	year, month, day := d.Date()

	prevYear, prevMonth := year, month-1
	if prevMonth < time.January {
		prevYear, prevMonth = year-1, time.December
	}

	if last := daysIn(prevYear, prevMonth); day > last {
		day = last
	}
	return time.Date(prevYear, prevMonth, day, 0, 0, 0, 0, d.Location())
}

func daysIn(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
