package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// OAuthScopes are the Google OAuth scopes the backend requests.
//
// The scopes provide access to:
//   - Gmail: read-only
//   - Google Calendar: events, availability and settings
var OAuthScopes = []string{
	gmail.GmailReadonlyScope,
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
	calendar.CalendarSettingsReadonlyScope,
}
