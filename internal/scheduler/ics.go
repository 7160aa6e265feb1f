package scheduler

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// ProductID identifies the calendars produced by EncodeICS.
const ProductID = "-//maintenance-scheduler//service calendar//EN"

// EncodeICS writes events as an iCalendar document. stamp becomes each event's DTSTAMP.
func EncodeICS(w io.Writer, events []Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, event := range events {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, event.ID)
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
		vevent.Props.SetText(ical.PropSummary, event.Title)
		if event.Description != "" {
			vevent.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.PropertyName != "" {
			vevent.Props.SetText(ical.PropLocation, event.PropertyName)
		}
		if event.Category != "" {
			vevent.Props.SetText(ical.PropCategories, event.Category)
		}
		vevent.Props.SetText("COLOR", event.BackgroundColor)
		vevent.Props.SetText("X-SERVICE-STATUS", strings.ToUpper(string(event.Status)))
		vevent.Props.SetText("X-SERVICE-PRIORITY", event.Priority)
		if event.AssignedEmployeeName != "" {
			vevent.Props.SetText("X-ASSIGNED-EMPLOYEE", event.AssignedEmployeeName)
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("scheduler: encode ics: %w", err)
	}
	return nil
}
