package handlers

import (
	"net/http"
	"time"

	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

func (h *Handler) HandleCreateAddressBook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	err := h.book.CreateAddressBook(h.caller(r))
	if !h.finish(w, r, "create_address_book", started, err) {
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleRemoveAddressBook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	err := h.book.RemoveAddressBook(h.caller(r))
	if !h.finish(w, r, "remove_address_book", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddContact adds an existing identity to the caller's address book.
// The request context bounds the identity lookup.
func (h *Handler) HandleAddContact(w http.ResponseWriter, r *http.Request) {
	var req api.ContactRequest
	if !decode(w, r, &req) {
		return
	}

	started := time.Now()
	err := h.book.AddIdentity(r.Context(), h.caller(r), req.IdentityNo, req.Nickname)
	if !h.finish(w, r, "add_identity", started, err) {
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleUpdateNickname(w http.ResponseWriter, r *http.Request) {
	no, ok := identityNoParam(w, r)
	if !ok {
		return
	}
	var req api.NicknameRequest
	if !decode(w, r, &req) {
		return
	}

	started := time.Now()
	err := h.book.UpdateNickname(h.caller(r), no, req.Nickname)
	if !h.finish(w, r, "update_nickname", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveContact(w http.ResponseWriter, r *http.Request) {
	no, ok := identityNoParam(w, r)
	if !ok {
		return
	}

	started := time.Now()
	err := h.book.RemoveIdentity(h.caller(r), no)
	if !h.finish(w, r, "remove_contact", started, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetAddressBook lists an account's contacts in insertion order.
func (h *Handler) HandleGetAddressBook(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	if !h.book.HasAddressBook(account) {
		api.WriteError(w, interfaces.ErrAddressBookDoesntExist)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.AddressBookResponse{Owner: account, Contacts: h.book.IdentitiesOf(account)})
}
