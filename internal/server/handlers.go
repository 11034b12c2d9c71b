package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/timelyagent/timely/internal/calendar"
	"github.com/timelyagent/timely/internal/callstore"
	"github.com/timelyagent/timely/internal/gmail"
	"github.com/timelyagent/timely/internal/llm"
	"github.com/timelyagent/timely/internal/logging"
	"github.com/timelyagent/timely/internal/telephony"
)

// fallbackRole is used when the role derivation completion fails; the
// call can still proceed with a generic counterpart.
const fallbackRole = "representative"

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.SessionID(w, r)
	_, authenticated := s.sessions.Token(id)
	respondJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.SessionID(w, r)
	http.Redirect(w, r, s.oauth.AuthCodeURL(s.sessions.StateFor(id)), http.StatusFound)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessions.SessionFromState(r.URL.Query().Get("state"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("auth code exchange failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	s.sessions.SetToken(id, token)
	s.logger.Info("session authenticated", logging.UserHash(id))
	http.Redirect(w, r, "/", http.StatusFound)
}

// sessionToken returns the Google token for the request's session, or
// writes a 401 and returns false.
func (s *Server) sessionToken(w http.ResponseWriter, r *http.Request) (string, *oauth2.Token, bool) {
	id := s.sessions.SessionID(w, r)
	token, ok := s.sessions.Token(id)
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated with Google")
		return "", nil, false
	}
	return id, token, true
}

func (s *Server) pipelineForToken(ctx context.Context, token *oauth2.Token) (*gmail.Pipeline, error) {
	mailbox, err := s.newMailbox(ctx, s.oauth.HTTPClient(ctx, token))
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox client: %w", err)
	}
	p := gmail.NewPipeline(mailbox, s.completer, s.logger)
	p.SetMetrics(s.metrics)
	return p, nil
}

func (s *Server) calendarForToken(ctx context.Context, token *oauth2.Token) (CalendarService, error) {
	return s.newCalendar(ctx, s.oauth.HTTPClient(ctx, token))
}

type prepareLookupRequest struct {
	UserRequest string `json:"userRequest"`
}

func (s *Server) handlePrepareLookup(w http.ResponseWriter, r *http.Request) {
	var req prepareLookupRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.UserRequest) == "" {
		respondError(w, http.StatusBadRequest, "userRequest is required")
		return
	}
	_, token, ok := s.sessionToken(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	vendor, err := s.completer.Complete(ctx, llm.VendorPrompt(req.UserRequest), llm.VendorMaxTokens)
	if err != nil {
		s.logger.Error("vendor derivation failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to analyze request")
		return
	}

	pipeline, err := s.pipelineForToken(ctx, token)
	if err != nil {
		s.logger.Error("mailbox setup failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to access mailbox")
		return
	}

	result, err := pipeline.FindInformation(ctx, strings.TrimSpace(vendor), req.UserRequest)
	if err != nil {
		s.logger.Error("inbox lookup failed", logging.Vendor(vendor), logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to search inbox")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePrepareScheduling(w http.ResponseWriter, r *http.Request) {
	_, token, ok := s.sessionToken(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	cal, err := s.calendarForToken(ctx, token)
	if err != nil {
		s.logger.Error("calendar setup failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to access calendar")
		return
	}

	tz, err := cal.Timezone(ctx)
	if err != nil {
		s.logger.Error("timezone fetch failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to read calendar settings")
		return
	}
	busy, err := cal.Availability(ctx)
	if err != nil {
		s.logger.Error("availability fetch failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to read calendar availability")
		return
	}

	context := fmt.Sprintf("The user's timezone is %s. %s", tz, calendar.FormatBusySlots(busy, tz))
	respondJSON(w, http.StatusOK, map[string]string{
		"taskType": telephony.TaskTypeScheduling,
		"timeZone": tz,
		"context":  context,
	})
}

type emailDetailsRequest struct {
	MessageID   string `json:"messageId"`
	UserRequest string `json:"userRequest"`
}

func (s *Server) handleGetEmailDetails(w http.ResponseWriter, r *http.Request) {
	var req emailDetailsRequest
	if err := decodeJSON(r, &req); err != nil || req.MessageID == "" || req.UserRequest == "" {
		respondError(w, http.StatusBadRequest, "messageId and userRequest are required")
		return
	}
	_, token, ok := s.sessionToken(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	pipeline, err := s.pipelineForToken(ctx, token)
	if err != nil {
		s.logger.Error("mailbox setup failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to access mailbox")
		return
	}

	details, err := pipeline.GetEmailDetails(ctx, req.MessageID, req.UserRequest)
	if err != nil {
		s.logger.Error("email detail extraction failed",
			logging.MessageID(req.MessageID), logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to extract email details")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

type initiateCallRequest struct {
	UserName    string `json:"userName"`
	UserRequest string `json:"userRequest"`
	PhoneNumber string `json:"phoneNumber"`
	Context     string `json:"context"`
	TaskType    string `json:"taskType"`
}

func (s *Server) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req initiateCallRequest
	if err := decodeJSON(r, &req); err != nil || req.UserName == "" || req.UserRequest == "" {
		respondError(w, http.StatusBadRequest, "userName and userRequest are required")
		return
	}
	if !strings.HasPrefix(req.PhoneNumber, "+") {
		respondError(w, http.StatusBadRequest, "phoneNumber must be in E.164 format")
		return
	}
	sessionID, _, ok := s.sessionToken(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	role, err := s.completer.Complete(ctx, llm.RolePrompt(req.UserRequest), llm.RoleMaxTokens)
	if err != nil {
		s.logger.Warn("role derivation failed, using fallback", logging.Err(err))
		role = fallbackRole
	}

	result, err := s.caller.PlaceCall(ctx, telephony.CallRequest{
		UserName:       req.UserName,
		UserRequest:    req.UserRequest,
		PhoneNumber:    req.PhoneNumber,
		Context:        req.Context,
		TaskType:       req.TaskType,
		OtherPartyRole: strings.TrimSpace(role),
	})
	if err != nil {
		s.logger.Error("call initiation failed", logging.Err(err))
		respondError(w, http.StatusInternalServerError, "failed to initiate call")
		return
	}

	s.store.Create(result.ConversationID)
	s.setCallOwner(result.ConversationID, sessionID)
	s.logger.Info("call initiated", logging.CallID(result.ConversationID))
	respondJSON(w, http.StatusOK, map[string]string{
		"callId":  result.ConversationID,
		"message": "Call initiated successfully.",
	})
}

func (s *Server) handleCallWebhook(w http.ResponseWriter, r *http.Request) {
	var event telephony.WebhookEvent
	if err := decodeJSON(r, &event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	callID := event.Data.ConversationID
	if callID == "" {
		respondError(w, http.StatusBadRequest, "missing conversation ID")
		return
	}

	if event.Data.Status != "" {
		s.store.SetStatus(callID, event.Data.Status)
	}

	if event.Type == telephony.EventPostCallTranscription && len(event.Data.Transcript) > 0 {
		s.summarizeAndStore(r.Context(), callID, telephony.TranscriptText(event.Data.Transcript))
		s.store.SetStatus(callID, callstore.StatusEnded)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.sessionToken(w, r); !ok {
		return
	}
	callID := chi.URLParam(r, "callID")

	status, err := s.store.Status(callID)
	if errors.Is(err, callstore.ErrNotFound) {
		// The webhook may have been missed; fall back to polling the
		// vendor directly.
		conv, convErr := s.caller.GetConversation(r.Context(), callID)
		if convErr != nil {
			respondError(w, http.StatusNotFound, "call not found")
			return
		}
		s.store.SetStatus(callID, conv.Status)
		status = conv.Status
	}

	if status == "" {
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.sessionToken(w, r); !ok {
		return
	}
	callID := chi.URLParam(r, "callID")

	summary, err := s.store.TakeSummary(callID)
	switch {
	case err == nil:
		s.dropCallOwner(callID)
		respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
	case errors.Is(err, callstore.ErrNotReady):
		// An already-delivered summary is never re-derived from the vendor;
		// repeat reads get 202 and nothing else.
		if !s.store.Delivered(callID) && s.trySummarizeFromPoll(w, r, callID) {
			return
		}
		respondProcessing(w)
	default:
		// The store may have missed the call entirely (restart, TTL sweep);
		// fall back to the vendor before declaring it unknown.
		if s.trySummarizeFromPoll(w, r, callID) {
			return
		}
		respondError(w, http.StatusNotFound, "call not found")
	}
}

// trySummarizeFromPoll fetches the conversation from the vendor. A finished
// call with a transcript is summarized and answered with 200; a call the
// vendor still shows running is answered with 202. Returns true when it
// wrote a response, false when the vendor poll failed.
func (s *Server) trySummarizeFromPoll(w http.ResponseWriter, r *http.Request, callID string) bool {
	conv, err := s.caller.GetConversation(r.Context(), callID)
	if err != nil {
		return false
	}
	if conv.Pending() || len(conv.Transcript) == 0 {
		s.store.SetStatus(callID, conv.Status)
		respondProcessing(w)
		return true
	}

	s.summarizeAndStore(r.Context(), callID, conv.TranscriptText())
	s.store.SetStatus(callID, callstore.StatusEnded)

	summary, err := s.store.TakeSummary(callID)
	if err != nil {
		return false
	}
	s.dropCallOwner(callID)
	respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
	return true
}

func respondProcessing(w http.ResponseWriter) {
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "processing",
		"message": "Conversation is still in progress",
	})
}
