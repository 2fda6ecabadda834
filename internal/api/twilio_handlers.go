package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/twiliowhatsapp"
)

// twilioMessageHandler handles inbound Twilio messages. The sender address is
// the session id and the reply goes back as TwiML.
func (s *Server) twilioMessageHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioMessageHandler: failed to parse form", "error", err)
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	if s.validator != nil && !s.validator.Validate(r, s.webhookURLFor(r)) {
		slog.Warn("Server.twilioMessageHandler: signature rejected", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}
	body := r.PostForm.Get("Body")
	sid := r.PostForm.Get("MessageSid")
	slog.Debug("Server.twilioMessageHandler: inbound message", "from", from, "sid", sid, "body", body)

	recorded := false
	if s.dedup != nil && sid != "" {
		fresh, err := s.dedup.RecordInbound(r.Context(), sid, from)
		switch {
		case err != nil:
			slog.Warn("Server.twilioMessageHandler: dedup unavailable, handling anyway", "error", err, "sid", sid)
		case !fresh:
			slog.Info("Server.twilioMessageHandler: duplicate delivery dropped", "sid", sid, "from", from)
			s.writeTwiML(w, "")
			return
		default:
			recorded = true
		}
	}

	reply, _, err := s.checkin.HandleMessage(r.Context(), from, body, nil)
	if err != nil {
		slog.Error("Server.twilioMessageHandler: check-in service failed", "error", err, "from", from)
		// Let Twilio's retry through.
		if recorded {
			if ferr := s.dedup.ForgetInbound(r.Context(), sid); ferr != nil {
				slog.Warn("Server.twilioMessageHandler: failed to forget message id", "error", ferr, "sid", sid)
			}
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.writeTwiML(w, reply)
}

// writeTwiML renders reply as a TwiML document.
func (s *Server) writeTwiML(w http.ResponseWriter, reply string) {
	doc, err := twiliowhatsapp.MessagingResponse(reply)
	if err != nil {
		slog.Error("Server.writeTwiML: failed to render reply", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeXMLResponse(w, http.StatusOK, doc)
}

// webhookURLFor returns the URL Twilio signed: the configured public URL, or
// one rebuilt from the request behind a proxy.
func (s *Server) webhookURLFor(r *http.Request) string {
	if s.webhookURL != "" {
		return s.webhookURL
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// twilioWelcomeHandler sends the proactive welcome over WhatsApp. The session
// id matches the one inbound messages from the same number will use.
func (s *Server) twilioWelcomeHandler(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Twilio sender not configured"))
		return
	}

	var req models.TwilioWelcomeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		slog.Warn("Server.twilioWelcomeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, "Server.twilioWelcomeHandler", err)
		return
	}

	sessionID := twiliowhatsapp.WhatsAppAddress(req.To)
	reply, session, err := s.checkin.Welcome(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, "Server.twilioWelcomeHandler", err)
		return
	}

	if err := s.sender.SendMessage(r.Context(), sessionID, reply); err != nil {
		slog.Error("Server.twilioWelcomeHandler: failed to send message", "error", err, "to", sessionID)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Failed to send message"))
		return
	}

	slog.Info("Server.twilioWelcomeHandler: welcome sent", "to", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Welcome sent", models.ChatResult{Reply: reply, State: session}))
}
