package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/flow"
	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/util"
	"github.com/go-chi/chi/v5"
)

// ServiceBanner is the message returned by GET /.
const ServiceBanner = "LiveWell check-in service"

// decodeJSON decodes the request body into v. An empty body is accepted when
// allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return io.EOF
	}
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeServiceError maps a check-in service error onto an HTTP status.
func writeServiceError(w http.ResponseWriter, handler string, err error) {
	switch {
	case errors.Is(err, models.ErrEmptySessionID),
		errors.Is(err, models.ErrEmptyAnswer),
		errors.Is(err, models.ErrEmptyRecipient):
		slog.Warn(handler+": invalid request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, flow.ErrSessionNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
	default:
		slog.Error(handler+": check-in service failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
	}
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(ServiceBanner, nil))
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, "Server.chatHandler", err)
		return
	}
	slog.Debug("Server.chatHandler: processing turn", "sessionID", req.SessionID, "message", req.Message, "inline_answers", len(req.Prisma7))

	reply, session, err := s.checkin.HandleMessage(r.Context(), req.SessionID, req.Message, req.Prisma7)
	if err != nil {
		writeServiceError(w, "Server.chatHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.ChatResult{Reply: reply, State: session}))
}

func (s *Server) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		slog.Warn("Server.welcomeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = util.GenerateSessionID()
		slog.Debug("Server.welcomeHandler: generated session id", "sessionID", req.SessionID)
	}

	reply, session, err := s.checkin.Welcome(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, "Server.welcomeHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.ChatResult{Reply: reply, State: session}))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		slog.Warn("Server.resetHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, "Server.resetHandler", err)
		return
	}
	if err := s.checkin.Reset(r.Context(), req.SessionID); err != nil {
		writeServiceError(w, "Server.resetHandler", err)
		return
	}
	slog.Info("Server.resetHandler: session reset", "sessionID", req.SessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", nil))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.checkin.Session(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Server.getSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(session))
}

// prismaScoreHandler scores a PRISMA-7 submission without touching any
// session.
func (s *Server) prismaScoreHandler(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw, false); err != nil {
		slog.Warn("Server.prismaScoreHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	answers := frailty.Normalize(raw)
	score, ok := frailty.Score(answers)
	if !ok {
		missing := frailty.Missing(answers)
		slog.Debug("Server.prismaScoreHandler: incomplete answers", "missing", missing)
		writeJSONResponse(w, http.StatusUnprocessableEntity,
			models.ErrorWithResult("PRISMA-7 answers incomplete", models.PrismaIncompleteResult{Missing: missing}))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(models.PrismaScoreResult{
		Score:    score,
		Band:     frailty.BandForScore(score),
		HighRisk: frailty.IsHighRisk(score),
	}))
}

func (s *Server) prismaStartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		slog.Warn("Server.prismaStartHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, "Server.prismaStartHandler", err)
		return
	}
	reply, session, err := s.checkin.StartCheckin(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, "Server.prismaStartHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.ChatResult{Reply: reply, State: session}))
}

func (s *Server) prismaAnswerHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PrismaAnswerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		slog.Warn("Server.prismaAnswerHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, "Server.prismaAnswerHandler", err)
		return
	}
	reply, session, err := s.checkin.AnswerCheckin(r.Context(), req.SessionID, req.Answer)
	if err != nil {
		writeServiceError(w, "Server.prismaAnswerHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.ChatResult{Reply: reply, State: session}))
}
