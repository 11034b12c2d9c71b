package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/timelyagent/timely/internal/calendar"
	"github.com/timelyagent/timely/internal/llm"
	"github.com/timelyagent/timely/internal/logging"
)

// summaryUnavailable is stored when summarization itself failed so the
// client still gets closure on the call.
const summaryUnavailable = "The call has ended, but a summary could not be generated."

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

// summarizeAndStore turns a finished call's transcript into a structured
// summary, performs the follow-up calendar insert when one is warranted,
// and stores the summary text for pickup.
func (s *Server) summarizeAndStore(ctx context.Context, callID, transcript string) {
	logger := s.logger.With(logging.CallID(callID))

	cal, timeZone := s.calendarForCall(ctx, callID)

	raw, err := s.completer.Complete(ctx, llm.SummaryPrompt(transcript, timeZone, s.now()), llm.SummaryMaxTokens)
	if err != nil {
		logger.Error("summary generation failed", logging.Err(err))
		s.store.SetSummary(callID, summaryUnavailable)
		return
	}
	summary := llm.ParseSummary(raw)

	action := summary.NextAction
	if action == nil && bookedOutcome(summary.Result) {
		action = s.recoverEventDetails(ctx, summary.Result, timeZone, logger)
	}

	text := fmt.Sprintf("**Summary:**\n%s\n\n**Result:**\n%s", summary.Summary, summary.Result)

	if action != nil && action.ActionType == llm.ActionCreateCalendarEvent && cal != nil {
		link, err := cal.CreateEvent(ctx, calendar.EventInput{
			Title:       action.Title,
			Description: action.Description,
			Start:       action.StartTime,
			End:         action.EndTime,
			TimeZone:    action.TimeZone,
		})
		if err != nil {
			logger.Error("follow-up event creation failed", logging.Err(err))
		} else {
			logger.Info("follow-up event created", logging.Operation("create_event"))
			text += "\n\nA calendar event has been created: " + link
		}
	}

	s.store.SetSummary(callID, text)
}

// calendarForCall builds a calendar client from the initiating session's
// token. Both are best-effort: without them the summary is generated in
// UTC and no follow-up event is created.
func (s *Server) calendarForCall(ctx context.Context, callID string) (CalendarService, string) {
	sessionID, ok := s.callOwner(callID)
	if !ok {
		return nil, "UTC"
	}
	token, ok := s.sessions.Token(sessionID)
	if !ok {
		return nil, "UTC"
	}

	cal, err := s.calendarForToken(ctx, token)
	if err != nil {
		s.logger.Warn("calendar setup failed for summary", logging.CallID(callID), logging.Err(err))
		return nil, "UTC"
	}
	tz, err := cal.Timezone(ctx)
	if err != nil || tz == "" {
		tz = "UTC"
	}
	return cal, tz
}

// bookedOutcome reports whether a result statement implies an appointment
// was made even though no structured next action came back.
func bookedOutcome(result string) bool {
	lower := strings.ToLower(result)
	return strings.Contains(lower, "booked") || strings.Contains(lower, "scheduled")
}

// recoverEventDetails re-extracts event details from the outcome sentence.
func (s *Server) recoverEventDetails(ctx context.Context, result, timeZone string, logger *slog.Logger) *llm.NextAction {
	raw, err := s.completer.Complete(ctx, llm.FallbackEventPrompt(result, timeZone, s.now()), llm.FallbackEventMaxTokens)
	if err != nil {
		logger.Warn("fallback event extraction failed", logging.Err(err))
		return nil
	}
	return llm.ParseNextAction(raw)
}
