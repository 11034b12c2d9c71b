package calendar

import (
	"fmt"
	"strings"
	"time"
)

// FormatBusySlots renders busy slots as prompt text in the user's
// timezone, one line per slot. With no slots the calendar is described as
// completely open.
func FormatBusySlots(slots []BusySlot, timeZone string) string {
	if len(slots) == 0 {
		return "The calendar is completely open for the next 30 days."
	}

	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("The calendar has the following busy slots:\n")
	for _, slot := range slots {
		start, errStart := time.Parse(time.RFC3339, slot.Start)
		end, errEnd := time.Parse(time.RFC3339, slot.End)
		if errStart != nil || errEnd != nil {
			fmt.Fprintf(&b, "- from %s to %s\n", slot.Start, slot.End)
			continue
		}
		start = start.In(loc)
		end = end.In(loc)
		fmt.Fprintf(&b, "- %s from %s to %s\n",
			start.Format("Mon Jan 2"), start.Format("3:04 PM"), end.Format("3:04 PM"))
	}
	return strings.TrimSpace(b.String())
}
