package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"octolabel/internal/catalog"
	"octolabel/internal/eventbus"
	"octolabel/internal/hostevents"
	"octolabel/internal/notify"
	"octolabel/internal/settings"
	logx "octolabel/pkg/logx"
)

const maxBody = 1 << 20

type eventResponse struct {
	EventID  catalog.ID    `json:"event_id,omitempty"`
	Status   notify.Status `json:"status"`
	Message  string        `json:"message,omitempty"`
	Outcome  string        `json:"outcome_id,omitempty"`
	Missing  string        `json:"missing,omitempty"`
	Error    string        `json:"error,omitempty"`
	HTTPCode int           `json:"http_code,omitempty"`
}

// statusIgnored answers host events that never notify.
const statusIgnored notify.Status = "ignored"

func newEventResponse(o notify.Outcome) eventResponse {
	return eventResponse{
		EventID:  o.Event,
		Status:   o.Status,
		Message:  o.Message,
		Outcome:  o.ID,
		Missing:  o.Missing,
		Error:    o.Error,
		HTTPCode: o.HTTPCode,
	}
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev hostevents.HostEvent
	if err := decodeJSON(r, &ev, false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(ev.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("event is required"))
		return
	}
	m, ok, err := s.mapper.Map(ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, eventResponse{Status: statusIgnored})
		return
	}
	out := s.deps.Dispatcher.Dispatch(deliveryContext(r), m.Event, m.Data)
	writeJSON(w, http.StatusOK, newEventResponse(out))
}

type progressRequest struct {
	Location string  `json:"location"`
	Path     string  `json:"path"`
	Progress float64 `json:"progress"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := s.mapper.Progress(req.Location, req.Path, req.Progress)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := s.deps.Dispatcher.Dispatch(deliveryContext(r), m.Event, m.Data)
	writeJSON(w, http.StatusOK, newEventResponse(out))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Settings.Values(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	settings.StripNever(&v)
	if !s.isAdmin(r) {
		settings.RedactAdmin(&v)
	}
	writeJSON(w, http.StatusOK, v)
}

type saveResponse struct {
	Saved    bool `json:"saved"`
	TestSent bool `json:"test_sent"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Values
	if err := decodeJSON(r, &patch, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := settings.CheckPatch(patch, s.isAdmin(r)); err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}
	changed, err := s.deps.Monitor.OnSettingsSave(deliveryContext(r), patch)
	switch {
	case errors.Is(err, catalog.ErrUnknownEvent):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.Error("settings save failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.deps.Bus.Publish(eventbus.Event{Type: eventbus.SettingsSaved, Data: changed})
	writeJSON(w, http.StatusOK, saveResponse{Saved: true, TestSent: changed})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	defs, err := s.deps.Settings.Events(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := defs[:0]
	for _, d := range defs {
		if !d.Internal {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items := []notify.Outcome{}
	if s.deps.History != nil {
		items = append(items, s.deps.History.Snapshot()...)
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Health != nil {
		body["loops"] = s.deps.Health()
	}
	writeJSON(w, http.StatusOK, body)
}

// decodeJSON reads one JSON value from the body. strict rejects unknown
// fields.
func decodeJSON(r *http.Request, dst any, strict bool) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// deliveryContext detaches work that must finish once started from the
// request lifetime. Delivery is bounded by the printer and script timeouts.
func deliveryContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
