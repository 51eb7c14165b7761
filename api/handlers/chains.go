package handlers

import (
	"net/http"
	"time"

	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// HandleAddChain registers a chain. Admin only.
func (h *Handler) HandleAddChain(w http.ResponseWriter, r *http.Request) {
	var info interfaces.ChainInfo
	if !decode(w, r, &info) {
		return
	}

	started := time.Now()
	chain, err := h.registry.AddChain(h.caller(r), info)
	if !h.finish(w, r, "add_chain", started, err) {
		return
	}
	api.WriteJSON(w, http.StatusCreated, api.AddChainResponse{ChainID: chain})
}

// HandleUpdateChain applies a partial update. A present rpc_url is appended to
// the chain's endpoints. Admin only.
func (h *Handler) HandleUpdateChain(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}
	var update interfaces.ChainUpdate
	if !decode(w, r, &update) {
		return
	}

	started := time.Now()
	err := h.registry.UpdateChain(h.caller(r), chain, update)
	if !h.finish(w, r, "update_chain", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveChain(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}

	started := time.Now()
	err := h.registry.RemoveChain(h.caller(r), chain)
	if !h.finish(w, r, "remove_chain", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAvailableChains(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.registry.AvailableChains())
}

func (h *Handler) HandleGetChain(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}

	info, found := h.registry.ChainInfoOf(chain)
	if !found {
		api.WriteError(w, interfaces.ErrInvalidChain)
		return
	}
	api.WriteJSON(w, http.StatusOK, interfaces.Chain{ID: chain, Info: info})
}
