package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/homeflux/homeflux/pkg/session"
	"github.com/homeflux/homeflux/pkg/types"
)

type statementRequest struct {
	Text string `json:"text"`
}

type questionRequest struct {
	Text string `json:"text"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.sessions.Session(r.Context(), household(r))
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: bad request body: %v", types.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleSetForecast(w http.ResponseWriter, r *http.Request) {
	var f types.Forecast
	if err := decodeBody(r, &f); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sched, err := sess.SetForecast(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, sched)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := sess.AddStatement(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	answer, err := sess.Ask(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, answerResponse{Answer: answer})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sched, err := sess.Schedule()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, sched)
}

func (s *Server) handleGetAttribution(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := sess.Attribution()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleGetConstraints(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, sess.Constraints())
}
