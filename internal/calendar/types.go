package calendar

// BusySlot is one occupied period on the calendar, in RFC 3339 as
// returned by the free/busy query.
type BusySlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// EventInput describes an event to insert. Start and End are RFC 3339
// date-times, TimeZone an IANA name.
type EventInput struct {
	Title       string
	Description string
	Start       string
	End         string
	TimeZone    string
}
