// Package calendar gives the call flow access to the user's primary
// Google Calendar: the calendar timezone, the next 30 days of busy slots
// for scheduling context, and event creation for booked appointments.
package calendar
