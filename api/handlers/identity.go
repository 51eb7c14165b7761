package handlers

import (
	"net/http"
	"time"

	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// HandleCreateIdentity creates an identity owned by the caller.
//
// Response: 201 with api.CreateIdentityResponse, 409 AlreadyIdentityOwner.
func (h *Handler) HandleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	no, err := h.registry.CreateIdentity(h.caller(r))
	if !h.finish(w, r, "create_identity", started, err) {
		return
	}
	api.WriteJSON(w, http.StatusCreated, api.CreateIdentityResponse{IdentityNo: no})
}

func (h *Handler) HandleRemoveIdentity(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	err := h.registry.RemoveIdentity(h.caller(r))
	if !h.finish(w, r, "remove_identity", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddAddress(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}
	var req api.AddressRequest
	if !decode(w, r, &req) {
		return
	}

	started := time.Now()
	err := h.registry.AddAddress(h.caller(r), chain, req.Address)
	if !h.finish(w, r, "add_address", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}
	var req api.AddressRequest
	if !decode(w, r, &req) {
		return
	}

	started := time.Now()
	err := h.registry.UpdateAddress(h.caller(r), chain, req.Address)
	if !h.finish(w, r, "update_address", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveAddress(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}

	started := time.Now()
	err := h.registry.RemoveAddress(h.caller(r), chain)
	if !h.finish(w, r, "remove_address", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetRecoveryAccount(w http.ResponseWriter, r *http.Request) {
	var req api.RecoveryRequest
	if !decode(w, r, &req) {
		return
	}

	started := time.Now()
	err := h.registry.SetRecoveryAccount(h.caller(r), req.RecoveryAccount)
	if !h.finish(w, r, "set_recovery_account", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTransferOwnership moves an identity to a new owner. The caller must be
// the current owner or the identity's recovery account.
func (h *Handler) HandleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	no, ok := identityNoParam(w, r)
	if !ok {
		return
	}
	var req api.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NewOwner.IsZero() {
		api.WriteBadRequest(w, "new_owner is required")
		return
	}

	started := time.Now()
	err := h.registry.TransferOwnership(h.caller(r), no, req.NewOwner)
	if !h.finish(w, r, "transfer_ownership", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetIdentity returns the owner, recovery account and addresses of an
// identity.
func (h *Handler) HandleGetIdentity(w http.ResponseWriter, r *http.Request) {
	no, ok := identityNoParam(w, r)
	if !ok {
		return
	}

	details, found := h.registry.IdentityDetails(no)
	if !found {
		api.WriteError(w, interfaces.ErrIdentityDoesntExist)
		return
	}

	resp := api.IdentityResponse{
		IdentityNo:      no,
		Owner:           details.Owner,
		RecoveryAccount: details.RecoveryAccount,
		Addresses:       details.Info.Addresses,
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleTransactionDestination(w http.ResponseWriter, r *http.Request) {
	no, ok := identityNoParam(w, r)
	if !ok {
		return
	}
	chain, ok := chainIDParam(w, r)
	if !ok {
		return
	}

	started := time.Now()
	address, err := h.registry.TransactionDestination(no, chain)
	if !h.finish(w, r, "transaction_destination", started, err) {
		return
	}
	api.WriteJSON(w, http.StatusOK, api.DestinationResponse{IdentityNo: no, Chain: chain, Address: address})
}

func (h *Handler) HandleIdentityOf(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}

	no, found := h.registry.IdentityOf(account)
	if !found {
		api.WriteError(w, interfaces.ErrIdentityDoesntExist)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.AccountIdentityResponse{Account: account, IdentityNo: no})
}
