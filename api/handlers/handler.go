package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
)

// EventSource is the read side of the event log.
type EventSource interface {
	Since(seq uint64, limit int) []events.Record
	LastSeq() uint64
}

// OperationObserver is notified after every registry operation.
type OperationObserver interface {
	ObserveOperation(operation string, started time.Time, err error)
}

// Handler serves the registry API.
type Handler struct {
	registry interfaces.IdentityRegistry
	book     interfaces.AddressBook
	events   EventSource
	log      *slog.Logger

	observer OperationObserver
	maxSkew  time.Duration
	now      func() time.Time

	authenticated []func(http.Handler) http.Handler
}

// NewHandler creates a handler. events may be nil, in which case the event
// feed is not served.
func NewHandler(registry interfaces.IdentityRegistry, book interfaces.AddressBook, events EventSource, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		book:     book,
		events:   events,
		log:      log,
		maxSkew:  api.DefaultMaxClockSkew,
		now:      time.Now,
	}
}

// WithObserver sets the operation observer, typically the metrics server.
func (h *Handler) WithObserver(observer OperationObserver) *Handler {
	h.observer = observer
	return h
}

// WithMaxClockSkew overrides the accepted request timestamp window.
func (h *Handler) WithMaxClockSkew(skew time.Duration) *Handler {
	h.maxSkew = skew
	return h
}

// WithAuthenticatedMiddleware adds middleware that runs after the request
// signature is verified, so the caller is available via api.CallerFrom.
func (h *Handler) WithAuthenticatedMiddleware(middlewares ...func(http.Handler) http.Handler) *Handler {
	h.authenticated = append(h.authenticated, middlewares...)
	return h
}

// RegisterRoutes mounts every registry endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/identities/{identity_no}", h.HandleGetIdentity)
	r.Get("/api/v1/identities/{identity_no}/destination/{chain_id}", h.HandleTransactionDestination)
	r.Get("/api/v1/accounts/{account}/identity", h.HandleIdentityOf)
	r.Get("/api/v1/accounts/{account}/addressbook", h.HandleGetAddressBook)
	r.Get("/api/v1/chains", h.HandleAvailableChains)
	r.Get("/api/v1/chains/{chain_id}", h.HandleGetChain)
	if h.events != nil {
		r.Get("/api/v1/events", h.HandleEvents)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Use(h.authenticated...)

		r.Post("/api/v1/identity", h.HandleCreateIdentity)
		r.Delete("/api/v1/identity", h.HandleRemoveIdentity)
		r.Post("/api/v1/identity/addresses/{chain_id}", h.HandleAddAddress)
		r.Put("/api/v1/identity/addresses/{chain_id}", h.HandleUpdateAddress)
		r.Delete("/api/v1/identity/addresses/{chain_id}", h.HandleRemoveAddress)
		r.Put("/api/v1/identity/recovery", h.HandleSetRecoveryAccount)
		r.Post("/api/v1/identities/{identity_no}/transfer", h.HandleTransferOwnership)

		r.Post("/api/v1/chains", h.HandleAddChain)
		r.Patch("/api/v1/chains/{chain_id}", h.HandleUpdateChain)
		r.Delete("/api/v1/chains/{chain_id}", h.HandleRemoveChain)

		r.Post("/api/v1/addressbook", h.HandleCreateAddressBook)
		r.Delete("/api/v1/addressbook", h.HandleRemoveAddressBook)
		r.Post("/api/v1/addressbook/contacts", h.HandleAddContact)
		r.Put("/api/v1/addressbook/contacts/{identity_no}", h.HandleUpdateNickname)
		r.Delete("/api/v1/addressbook/contacts/{identity_no}", h.HandleRemoveContact)
	})
}

// authenticate verifies the request signature and stores the signer as the
// caller in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := api.VerifyRequest(r, h.now(), h.maxSkew)
		if err != nil {
			h.log.Warn("Authentication failed", "err", err, slog.String("path", r.URL.Path))
			api.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithCaller(r.Context(), caller)))
	})
}

func (h *Handler) caller(r *http.Request) interfaces.AccountID {
	caller, _ := api.CallerFrom(r.Context())
	return caller
}

// finish records the outcome of operation and writes the error response, if
// any. It reports whether the handler should continue.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, operation string, started time.Time, err error) bool {
	if h.observer != nil {
		h.observer.ObserveOperation(operation, started, err)
	}
	if err == nil {
		return true
	}

	if api.StatusFor(err) == http.StatusInternalServerError {
		h.log.Error("Operation failed", "err", err, slog.String("operation", operation))
	} else {
		h.log.Debug("Operation rejected", "err", err, slog.String("operation", operation), slog.String("caller", h.caller(r).String()))
	}
	api.WriteError(w, err)
	return false
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxBodySize))
	if err != nil {
		api.WriteBadRequest(w, "failed to read request body")
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		api.WriteBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func identityNoParam(w http.ResponseWriter, r *http.Request) (interfaces.IdentityNo, bool) {
	no, err := interfaces.ParseIdentityNo(r.PathValue("identity_no"))
	if err != nil {
		api.WriteBadRequest(w, err.Error())
		return 0, false
	}
	return no, true
}

func chainIDParam(w http.ResponseWriter, r *http.Request) (interfaces.ChainID, bool) {
	chain, err := interfaces.ParseChainID(r.PathValue("chain_id"))
	if err != nil {
		api.WriteBadRequest(w, err.Error())
		return 0, false
	}
	return chain, true
}

func accountParam(w http.ResponseWriter, r *http.Request) (interfaces.AccountID, bool) {
	account, err := interfaces.NewAccountIDFromHex(r.PathValue("account"))
	if err != nil {
		api.WriteBadRequest(w, "invalid account: "+err.Error())
		return interfaces.AccountID{}, false
	}
	return account, true
}
