// Package httpapi adapts the relay core to the form-encoded HTTP API the
// microcontroller clients speak.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"device-relay/internal/device"
	"device-relay/internal/relay"
	"device-relay/internal/telemetry"
)

const notVisibleDescription = "Device is not visible to the server"

type Handler struct {
	registry   *device.Registry
	dispatcher *relay.Dispatcher
	sink       telemetry.Sink
	log        zerolog.Logger
}

func NewHandler(registry *device.Registry, dispatcher *relay.Dispatcher, sink telemetry.Sink, log zerolog.Logger) *Handler {
	return &Handler{registry: registry, dispatcher: dispatcher, sink: sink, log: log}
}

// Mount registers every endpoint except the websocket feed, which needs
// the notify hub and is wired in main.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/device", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/unregister", h.Unregister)
		r.Route("/message", func(r chi.Router) {
			r.Post("/receive", h.Receive)
			r.Post("/pending/count", h.CountPending)
			r.Post("/pending/get", h.GetPending)
			r.Get("/metric/retrieve", h.RetrieveMetrics)
		})
	})
	r.Get("/api/database/", h.Dump)
}

// Register creates a device for macAddress if one does not exist.
// username is optional and defaults to the MAC. Always succeeds once
// arguments validate; re-registration is a no-op.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	mac := r.PostFormValue("macAddress")
	username := r.PostFormValue("username")

	reqErrs := newRequestErrors()
	if mac == "" {
		reqErrs.addRequired("macAddress")
	}
	if !reqErrs.empty() {
		reqErrs.write(w)
		return
	}

	h.registry.Register(mac, username)
	writeJSON(w, http.StatusOK, map[string]string{})
}

// Unregister removes the device and discards its mailbox. Unknown MACs
// are a no-op.
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	mac := r.PostFormValue("macAddress")

	reqErrs := newRequestErrors()
	if mac == "" {
		reqErrs.addRequired("macAddress")
	}
	if !reqErrs.empty() {
		reqErrs.write(w)
		return
	}

	h.registry.Unregister(mac)
	writeJSON(w, http.StatusOK, map[string]string{})
}

// Receive broadcasts a message from macAddress to every other device.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	mac := r.PostFormValue("macAddress")
	message := r.PostFormValue("message")

	reqErrs := newRequestErrors()
	if mac == "" {
		reqErrs.addRequired("macAddress")
	}
	if message == "" {
		reqErrs.addRequired("message")
	}
	if !reqErrs.empty() {
		reqErrs.write(w)
		return
	}

	report, err := h.dispatcher.Submit(r.Context(), mac, message)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeError(w, http.StatusForbidden, errUnauthorizedRequest, notVisibleDescription)
			return
		}
		writeError(w, http.StatusInternalServerError, errServerError, "broadcast failed")
		return
	}
	if len(report.Failed) > 0 {
		h.log.Warn().Strs("recipients", report.Failed).Msg("broadcast skipped unregistering devices")
	}

	writeJSON(w, http.StatusOK, map[string]string{})
}

// CountPending reports how many messages are waiting for macAddress
// without removing any.
func (h *Handler) CountPending(w http.ResponseWriter, r *http.Request) {
	mac := r.PostFormValue("macAddress")

	reqErrs := newRequestErrors()
	if mac == "" {
		reqErrs.addRequired("macAddress")
	}
	if !reqErrs.empty() {
		reqErrs.write(w)
		return
	}

	dev, err := h.registry.Get(mac)
	if err != nil {
		writeError(w, http.StatusForbidden, errUnauthorizedRequest, notVisibleDescription)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": dev.Mailbox().Count()})
}

// GetPending drains up to limit messages for macAddress, oldest first.
func (h *Handler) GetPending(w http.ResponseWriter, r *http.Request) {
	mac := r.PostFormValue("macAddress")
	rawLimit := r.PostFormValue("limit")

	reqErrs := newRequestErrors()
	if mac == "" {
		reqErrs.addRequired("macAddress")
	}
	limit := 0
	switch {
	case rawLimit == "":
		reqErrs.addRequired("limit")
	default:
		parsed, err := strconv.Atoi(rawLimit)
		switch {
		case err != nil:
			reqErrs.addInvalidType("limit")
		case parsed < 0:
			reqErrs.addInvalidValue("limit")
		default:
			limit = parsed
		}
	}
	if !reqErrs.empty() {
		reqErrs.write(w)
		return
	}

	dev, err := h.registry.Get(mac)
	if err != nil {
		writeError(w, http.StatusForbidden, errUnauthorizedRequest, notVisibleDescription)
		return
	}

	messages, err := dev.Mailbox().Drain(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errServerError, "drain failed")
		return
	}

	views := make([]device.MessageView, len(messages))
	for i, msg := range messages {
		views[i] = msg.View()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(views),
		"messages": views,
	})
}

// RetrieveMetrics returns the two-week weekday/hour activity heatmap for
// one sender.
func (h *Handler) RetrieveMetrics(w http.ResponseWriter, r *http.Request) {
	mac := r.URL.Query().Get("macAddress")
	rawLimit := r.URL.Query().Get("limit")

	reqErrs := newRequestErrors()
	if mac == "" {
		reqErrs.addRequired("macAddress")
	}
	limit := 0
	switch {
	case rawLimit == "":
		reqErrs.addRequired("limit")
	default:
		parsed, err := strconv.Atoi(rawLimit)
		switch {
		case err != nil:
			reqErrs.addInvalidType("limit")
		case parsed < 0:
			reqErrs.addInvalidValue("limit")
		default:
			limit = parsed
		}
	}
	if !reqErrs.empty() {
		reqErrs.write(w)
		return
	}

	heatmap, err := telemetry.CollectHeatmap(r.Context(), h.sink, h.log, mac, limit)
	if err != nil {
		h.log.Error().Err(err).Str("sender", mac).Msg("heatmap query failed")
		writeError(w, http.StatusBadGateway, errServerError, "telemetry backend unavailable")
		return
	}

	writeJSON(w, http.StatusOK, heatmap)
}

// Dump exports every registered device with its full unread list. The
// export is non-destructive; nothing is drained.
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Snapshot()
	devices := make([]device.DeviceView, 0, len(snapshot))
	for _, view := range snapshot {
		devices = append(devices, view)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}
