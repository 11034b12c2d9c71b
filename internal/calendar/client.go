package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// availabilityWindow is how far ahead busy slots are collected.
const availabilityWindow = 30 * 24 * time.Hour

// Client wraps the Google Calendar service for the user's primary
// calendar.
type Client struct {
	svc *calendar.Service
	now func() time.Time
}

// NewClient creates a Calendar client on top of an OAuth2-authenticated
// HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, now: time.Now}, nil
}

// Timezone returns the user's calendar timezone as an IANA name.
func (c *Client) Timezone(ctx context.Context) (string, error) {
	setting, err := c.svc.Settings.Get("timezone").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get timezone setting: %w", err)
	}
	return setting.Value, nil
}

// Availability returns the busy slots on the primary calendar for the
// next 30 days.
func (c *Client) Availability(ctx context.Context) ([]BusySlot, error) {
	start := c.now()
	req := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: start.Add(availabilityWindow).Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}

	res, err := c.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	var slots []BusySlot
	if cal, ok := res.Calendars["primary"]; ok {
		for _, period := range cal.Busy {
			slots = append(slots, BusySlot{Start: period.Start, End: period.End})
		}
	}
	return slots, nil
}

// CreateEvent inserts an event into the primary calendar and returns its
// HTML link.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	if in.Title == "" || in.Start == "" || in.End == "" {
		return "", fmt.Errorf("event title, start and end are required")
	}

	event := &calendar.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: in.Start, TimeZone: in.TimeZone},
		End:         &calendar.EventDateTime{DateTime: in.End, TimeZone: in.TimeZone},
	}

	created, err := c.svc.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.HtmlLink, nil
}
