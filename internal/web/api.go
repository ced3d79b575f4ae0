package web

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/scape/internal/scene"
	"github.com/Faultbox/scape/pkg/glb"
)

// roomName keeps room names to a single safe path segment.
var roomName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// maxRecordBody caps PUT payloads.
const maxRecordBody = 64 << 10

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_error", errors.Wrap(err, "encoding response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	data, _ := json.Marshal(errorBody{Error: kind, Detail: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// errorKind classifies a processing failure for clients.
func errorKind(err error) string {
	var ioErr *glb.IOError
	switch {
	case errors.As(err, &ioErr):
		return "io_error"
	case errors.Is(err, glb.ErrFormat):
		return "format_error"
	default:
		return "internal_error"
	}
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	if !roomName.MatchString(room) {
		writeError(w, http.StatusBadRequest, "invalid_room", errors.Errorf("invalid room name %q", room))
		return
	}

	path := filepath.Join(s.roomsDir, room+".glb")
	start := time.Now()
	model, err := s.processor.ProcessFile(path)
	s.metrics.modelSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		err = errors.Wrapf(err, "room %s", room)
		kind := errorKind(err)
		s.metrics.modelResults.WithLabelValues(kind).Inc()
		s.log.Error("processing room model", zap.String("room", room), zap.Error(err))
		writeError(w, http.StatusInternalServerError, kind, err)
		return
	}
	s.metrics.modelResults.WithLabelValues("ok").Inc()

	if len(model.Warnings) > 0 {
		w.Header().Set("X-Partial-Data", strconv.Itoa(len(model.Warnings)))
	}
	writeJSON(w, http.StatusOK, model)
}

// kindFromPath maps a collection segment to an entity kind.
func kindFromPath(segment string) (scene.Kind, bool) {
	switch segment {
	case "devices":
		return scene.KindDevice, true
	case "participants":
		return scene.KindParticipant, true
	}
	return "", false
}

func (s *Server) pathKey(w http.ResponseWriter, r *http.Request) (scene.Key, bool) {
	vars := mux.Vars(r)
	kind, ok := kindFromPath(vars["kind"])
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.Errorf("unknown collection %q", vars["kind"]))
		return scene.Key{}, false
	}
	return scene.Key{Kind: kind, ID: vars["id"]}, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	segment := mux.Vars(r)["kind"]
	kind, ok := kindFromPath(segment)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.Errorf("unknown collection %q", segment))
		return
	}
	writeJSON(w, http.StatusOK, s.store.List(kind))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	k, ok := s.pathKey(w, r)
	if !ok {
		return
	}
	e, found := s.store.Get(k)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", errors.Errorf("%s not found", k))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	k, ok := s.pathKey(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Wrap(err, "reading body"))
		return
	}
	var rec scene.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Wrap(err, "decoding record"))
		return
	}

	// The path is authoritative for identity.
	rec.ID, _ = json.Marshal(k.ID)
	rec.Kind = string(k.Kind)
	e, err := rec.Normalize(k.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_entity", errors.Wrapf(err, "%s", k))
		return
	}

	created, err := s.store.Upsert(e)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_entity", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.log.Debug("roster upsert", zap.Stringer("key", k), zap.Bool("created", created))
	writeJSON(w, status, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	k, ok := s.pathKey(w, r)
	if !ok {
		return
	}
	if !s.store.Remove(k) {
		writeError(w, http.StatusNotFound, "not_found", errors.Errorf("%s not found", k))
		return
	}
	s.log.Debug("roster remove", zap.Stringer("key", k))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      snap.Version,
		"devices":      len(snap.Devices),
		"participants": len(snap.Participants),
		"streams":      s.store.Subscribers(),
	})
}
