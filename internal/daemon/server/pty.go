package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
)

func (s *Server) handlePtyList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ptys.List())
}

func (s *Server) handlePtyCreate(w http.ResponseWriter, r *http.Request) {
	var req pty.CreateOptions
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.InvalidInput("body", err.Error()))
			return
		}
	}
	id, err := s.ptys.Create(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.ptys.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handlePtyKill(w http.ResponseWriter, r *http.Request) {
	if err := s.ptys.Kill(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePtyResize(w http.ResponseWriter, r *http.Request) {
	var size daemon.PtySize
	if err := json.NewDecoder(r.Body).Decode(&size); err != nil {
		s.writeError(w, errors.InvalidInput("body", err.Error()))
		return
	}
	if err := s.ptys.Resize(r.PathValue("id"), size.Cols, size.Rows); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePtyInput(w http.ResponseWriter, r *http.Request) {
	var in daemon.PtyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, errors.InvalidInput("body", err.Error()))
		return
	}
	if err := s.ptys.Write(r.PathValue("id"), in.Data); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePtyAttach bridges a websocket to one session. Binary frames carry
// terminal bytes both ways; text frames carry daemon.AttachMessage. The
// session keeps running when the client disconnects.
func (s *Server) handlePtyAttach(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Subscribe before checking the session so its exit cannot be missed.
	events, unsubscribe := s.ptys.SubscribeSession(id)
	defer unsubscribe()
	if _, err := s.ptys.Get(id); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := s.logger.WithField("id", id)
	logger.Debug("PTY client attached")

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch kind {
			case websocket.BinaryMessage:
				if err := s.ptys.Write(id, data); err != nil {
					return
				}
			case websocket.TextMessage:
				var msg daemon.AttachMessage
				if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "resize" {
					continue
				}
				if err := s.ptys.Resize(id, msg.Cols, msg.Rows); err != nil {
					logger.WithError(err).Debug("Resize from client failed")
				}
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			logger.Debug("PTY client detached")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case models.PtyEventOutput:
				if err := conn.WriteMessage(websocket.BinaryMessage, ev.Data); err != nil {
					return
				}
			case models.PtyEventExit:
				_ = conn.WriteJSON(daemon.AttachMessage{Type: "exit", ExitCode: ev.ExitCode, Signal: ev.Signal})
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session exited"))
				return
			}
		}
	}
}
