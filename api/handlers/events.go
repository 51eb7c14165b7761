package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ruteri/identity-registry/api"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// HandleEvents returns events with a sequence number greater than since.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			api.WriteBadRequest(w, "invalid since parameter")
			return
		}
		since = parsed
	}

	limit := defaultEventsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 {
			api.WriteBadRequest(w, "invalid limit parameter")
			return
		}
		limit = min(parsed, maxEventsLimit)
	}

	resp := api.EventsResponse{LastSeq: h.events.LastSeq()}
	records := h.events.Since(since, limit)
	resp.Events = make([]api.EventRecord, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec.Event)
		if err != nil {
			h.log.Error("Failed to encode event", "err", err, "seq", rec.Seq)
			api.WriteError(w, err)
			return
		}
		resp.Events = append(resp.Events, api.EventRecord{Seq: rec.Seq, Time: rec.Time, Name: rec.Name, Data: data})
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
