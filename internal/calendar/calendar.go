// Package calendar renders a user's events as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/nar43/eventtracking/internal/models"
)

const productID = "-//eventtracking//events//EN"

// dateLayouts are tried in order when interpreting an event date.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate interprets a free-form event date as a calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Export is a rendered feed.
type Export struct {
	Body     string
	Included int
	Skipped  int // events whose date could not be parsed
}

// Build renders one all-day VEVENT per event with a recognizable date.
func Build(owner string, events []models.Event, now time.Time) Export {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(owner + " events")

	var out Export
	for _, e := range events {
		day, ok := ParseDate(e.Date)
		if !ok {
			out.Skipped++
			continue
		}

		ev := cal.AddEvent(fmt.Sprintf("event-%d-%s@eventtracking", e.ID, owner))
		ev.SetSummary(e.Name)
		ev.SetDtStampTime(now)
		if !e.CreatedAt.IsZero() {
			ev.SetCreatedTime(e.CreatedAt)
		}
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		out.Included++
	}

	out.Body = cal.Serialize()
	return out
}
