package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"distance-request-service/internal/api/dto"
	"distance-request-service/internal/domain"
	"distance-request-service/internal/i18n"
	"distance-request-service/internal/ports"
	"distance-request-service/internal/services"

	"github.com/go-chi/chi/v5"
)

// OfflineHeader marks the client as offline ("1" or "true") or online ("0" or "false").
const OfflineHeader = "X-Offline"

// SessionHandler drives distance request forms over HTTP.
type SessionHandler struct {
	Sessions   *services.Sessions
	Store      ports.TransactionStore
	Backups    ports.BackupStore
	Routes     ports.RouteService
	Token      ports.TokenLifecycle
	Geocoder   ports.Geocoder
	Translator ports.Translator
	OnSubmit   services.SubmitFunc

	navs sync.Map // session id -> *navRecorder
}

// offline reads OfflineHeader; ok is false when the header is absent or unrecognized.
func offline(r *http.Request) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(r.Header.Get(OfflineHeader))) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	default:
		return false, false
	}
}

// session resolves {sid} and applies the connectivity header to it.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (string, *services.DistanceRequest, bool) {
	sid := chi.URLParam(r, "sid")
	d, err := h.Sessions.Get(sid)
	if err != nil {
		writeDomainError(w, r, err)
		return "", nil, false
	}
	if v, ok := offline(r); ok {
		d.SetOffline(v)
	}
	return sid, d, true
}

func (h *SessionHandler) recorder(sid string) *navRecorder {
	if n, ok := h.navs.Load(sid); ok {
		return n.(*navRecorder)
	}
	return &navRecorder{}
}

func viewResponse(sid string, v services.View) dto.SessionViewResponse {
	return dto.SessionViewResponse{
		SessionID:         sid,
		TransactionID:     v.TransactionID,
		Mode:              string(v.Mode),
		Waypoints:         v.Waypoints,
		ValidCount:        v.ValidCount,
		Route:             dto.NewRouteResponse(v.Route),
		Amount:            v.Amount,
		Merchant:          v.Merchant,
		Errors:            v.Errors,
		HasError:          v.HasError,
		IsLoadingRoute:    v.IsLoadingRoute,
		IsLoading:         v.IsLoading,
		ShouldShowLoading: v.ShouldShowLoading,
		Optimistic:        v.Optimistic,
		Offline:           v.Offline,
		CanAddStop:        v.CanAddStop,
		EditState:         v.EditState,
	}
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.TransactionID) == "" {
		writeError(w, r, http.StatusBadRequest, "transaction_id is required")
		return
	}
	mode := services.Mode(req.Mode)
	if mode == "" {
		mode = services.ModeCreate
	}
	if mode != services.ModeCreate && mode != services.ModeEdit {
		writeError(w, r, http.StatusBadRequest, "mode must be create or edit")
		return
	}
	iouType := req.IOUType
	if iouType == "" {
		iouType = "request"
	}

	nav := &navRecorder{}
	isOffline, _ := offline(r)
	sid, d, err := h.Sessions.Open(r.Context(), services.DistanceRequestConfig{
		TransactionID: req.TransactionID,
		ReportID:      req.ReportID,
		IOUType:       iouType,
		Mode:          mode,
		BackTo:        req.BackTo,
		Offline:       isOffline,
		Store:         h.Store,
		Backups:       h.Backups,
		Routes:        h.Routes,
		Token:         h.Token,
		Navigator:     nav,
		Translator:    h.Translator,
		OnSubmit:      h.OnSubmit,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.navs.Store(sid, nav)

	writeJSON(w, r, http.StatusCreated, viewResponse(sid, d.View()))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, viewResponse(sid, d.View()))
}

// Close ends the form, restoring the backup of an unsaved edit.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	err := h.Sessions.Close(context.WithoutCancel(r.Context()), sid)
	h.navs.Delete(sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SetWaypoint(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	var req dto.WaypointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wp := domain.Waypoint{Address: strings.TrimSpace(req.Address), Name: req.Name}
	if req.Lat != nil && req.Lng != nil {
		wp.Lat, wp.Lng = *req.Lat, *req.Lng
	} else if wp.Address != "" && h.Geocoder != nil {
		c, err := h.Geocoder.Geocode(r.Context(), wp.Address)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		wp.Lat, wp.Lng = c.Lat, c.Lon
	}

	if err := d.SetWaypoint(r.Context(), index, wp); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, viewResponse(sid, d.View()))
}

func (h *SessionHandler) RemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	if err := d.RemoveWaypoint(r.Context(), index); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, viewResponse(sid, d.View()))
}

func (h *SessionHandler) EditWaypoint(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	if err := d.EditWaypoint(index); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.recorder(sid).take())
}

func (h *SessionHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Order) == 0 {
		writeError(w, r, http.StatusBadRequest, "order is required")
		return
	}

	if err := d.Reorder(req.Order); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, viewResponse(sid, d.View()))
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}

	err := d.Submit(r.Context())
	if errors.Is(err, domain.ErrSubmitBlocked) {
		writeJSON(w, r, http.StatusUnprocessableEntity, map[string]any{
			"error": err.Error(),
			"view":  viewResponse(sid, d.View()),
		})
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.recorder(sid).take())
}

func (h *SessionHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := d.AddStop(); err != nil {
		if errors.Is(err, domain.ErrTooManyWaypoints) {
			writeError(w, r, http.StatusUnprocessableEntity, h.Translator.Translate(i18n.KeyTooManyWaypoints))
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.recorder(sid).take())
}

func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.session(w, r)
	if !ok {
		return
	}
	d.Back()
	writeJSON(w, r, http.StatusOK, h.recorder(sid).take())
}
