package registry

import (
	"context"
	"math"

	"github.com/ruteri/identity-registry/config"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/sasha-s/go-deadlock"
)

// Registry is the identity registry together with its chain directory.
type Registry struct {
	mu deadlock.RWMutex

	admin   interfaces.AccountID
	limits  config.Limits
	emitter events.Emitter

	identityOf        map[interfaces.AccountID]interfaces.IdentityNo
	ownerOf           map[interfaces.IdentityNo]interfaces.AccountID
	recoveryAccountOf map[interfaces.IdentityNo]interfaces.AccountID
	identities        map[interfaces.IdentityNo]interfaces.IdentityInfo

	// Next values to allocate. Kept wider than the id types so that
	// exhaustion is detected instead of wrapping.
	latestIdentityNo uint64
	chainIDCount     uint64

	chains map[interfaces.ChainID]interfaces.ChainInfo
}

var _ interfaces.IdentityRegistry = (*Registry)(nil)

// New creates an empty registry administered by admin. A nil emitter
// discards events.
func New(admin interfaces.AccountID, limits config.Limits, emitter events.Emitter) *Registry {
	if emitter == nil {
		emitter = events.Discard
	}
	return &Registry{
		admin:             admin,
		limits:            limits,
		emitter:           emitter,
		identityOf:        make(map[interfaces.AccountID]interfaces.IdentityNo),
		ownerOf:           make(map[interfaces.IdentityNo]interfaces.AccountID),
		recoveryAccountOf: make(map[interfaces.IdentityNo]interfaces.AccountID),
		identities:        make(map[interfaces.IdentityNo]interfaces.IdentityInfo),
		chains:            make(map[interfaces.ChainID]interfaces.ChainInfo),
	}
}

// Admin returns the account allowed to mutate the chain directory.
func (r *Registry) Admin() interfaces.AccountID {
	return r.admin
}

// Limits returns the size limits the registry enforces.
func (r *Registry) Limits() config.Limits {
	return r.limits
}

// CreateIdentity allocates the next identity number and makes caller its owner.
func (r *Registry) CreateIdentity(caller interfaces.AccountID) (interfaces.IdentityNo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, owns := r.identityOf[caller]; owns {
		return 0, interfaces.ErrAlreadyIdentityOwner
	}
	if r.latestIdentityNo > math.MaxUint32 {
		return 0, interfaces.ErrCounterExhausted
	}

	identityNo := interfaces.IdentityNo(r.latestIdentityNo)
	r.latestIdentityNo++

	r.identityOf[caller] = identityNo
	r.ownerOf[identityNo] = caller
	r.identities[identityNo] = interfaces.IdentityInfo{Addresses: []interfaces.ChainAddressEntry{}}

	r.emitter.Emit(events.IdentityCreated{Owner: caller, IdentityNo: identityNo})
	return identityNo, nil
}

// ownedIdentity returns the identity owned by caller. Must hold r.mu.
func (r *Registry) ownedIdentity(caller interfaces.AccountID) (interfaces.IdentityNo, error) {
	identityNo, ok := r.identityOf[caller]
	if !ok {
		return 0, interfaces.ErrNotAllowed
	}
	return identityNo, nil
}

// AddAddress registers the caller's address on chain. The chain directory
// is not consulted, addresses may be stored for chains it does not list.
func (r *Registry) AddAddress(caller interfaces.AccountID, chain interfaces.ChainID, address interfaces.ChainAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityNo, err := r.ownedIdentity(caller)
	if err != nil {
		return err
	}
	if err := r.limits.CheckAddress(address); err != nil {
		return err
	}

	info := r.identities[identityNo]
	if _, exists := info.AddressOn(chain); exists {
		return interfaces.ErrAddressAlreadyAdded
	}

	stored := append(interfaces.ChainAddress(nil), address...)
	info.Addresses = append(info.Addresses, interfaces.ChainAddressEntry{Chain: chain, Address: stored})
	r.identities[identityNo] = info

	r.emitter.Emit(events.AddressAdded{IdentityNo: identityNo, Chain: chain, Address: append(interfaces.ChainAddress(nil), stored...)})
	return nil
}

// UpdateAddress replaces the caller's existing address on chain in place.
func (r *Registry) UpdateAddress(caller interfaces.AccountID, chain interfaces.ChainID, address interfaces.ChainAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityNo, err := r.ownedIdentity(caller)
	if err != nil {
		return err
	}
	if err := r.limits.CheckAddress(address); err != nil {
		return err
	}

	info := r.identities[identityNo]
	idx := indexOfChain(info, chain)
	if idx < 0 {
		return interfaces.ErrInvalidChain
	}

	stored := append(interfaces.ChainAddress(nil), address...)
	info.Addresses[idx].Address = stored

	r.emitter.Emit(events.AddressUpdated{IdentityNo: identityNo, Chain: chain, UpdatedAddress: append(interfaces.ChainAddress(nil), stored...)})
	return nil
}

// RemoveAddress deletes the caller's address on chain.
func (r *Registry) RemoveAddress(caller interfaces.AccountID, chain interfaces.ChainID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityNo, err := r.ownedIdentity(caller)
	if err != nil {
		return err
	}

	info := r.identities[identityNo]
	idx := indexOfChain(info, chain)
	if idx < 0 {
		return interfaces.ErrInvalidChain
	}

	addresses := make([]interfaces.ChainAddressEntry, 0, len(info.Addresses)-1)
	addresses = append(addresses, info.Addresses[:idx]...)
	addresses = append(addresses, info.Addresses[idx+1:]...)
	info.Addresses = addresses
	r.identities[identityNo] = info

	r.emitter.Emit(events.AddressRemoved{IdentityNo: identityNo, Chain: chain})
	return nil
}

// RemoveIdentity deletes the caller's identity with all its addresses and
// its recovery account. The identity number is not reused.
func (r *Registry) RemoveIdentity(caller interfaces.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityNo, err := r.ownedIdentity(caller)
	if err != nil {
		return err
	}

	delete(r.identityOf, caller)
	delete(r.ownerOf, identityNo)
	delete(r.recoveryAccountOf, identityNo)
	delete(r.identities, identityNo)

	r.emitter.Emit(events.IdentityRemoved{IdentityNo: identityNo})
	return nil
}

// SetRecoveryAccount sets, or overwrites, the account allowed to transfer
// the caller's identity.
func (r *Registry) SetRecoveryAccount(caller interfaces.AccountID, recovery interfaces.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityNo, err := r.ownedIdentity(caller)
	if err != nil {
		return err
	}

	r.recoveryAccountOf[identityNo] = recovery

	r.emitter.Emit(events.RecoveryAccountSet{IdentityNo: identityNo, RecoveryAccount: recovery})
	return nil
}

// TransferOwnership moves identityNo to newOwner. The caller must be the
// current owner or the identity's recovery account. Addresses and the
// recovery account are kept. Transferring to the current owner succeeds
// without changing state.
func (r *Registry) TransferOwnership(caller interfaces.AccountID, identityNo interfaces.IdentityNo, newOwner interfaces.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, exists := r.ownerOf[identityNo]
	if !exists {
		return interfaces.ErrIdentityDoesntExist
	}

	recovery, hasRecovery := r.recoveryAccountOf[identityNo]
	if caller != owner && !(hasRecovery && caller == recovery) {
		return interfaces.ErrNotAllowed
	}

	if newOwner != owner {
		if _, owns := r.identityOf[newOwner]; owns {
			return interfaces.ErrAlreadyIdentityOwner
		}

		delete(r.identityOf, owner)
		r.identityOf[newOwner] = identityNo
		r.ownerOf[identityNo] = newOwner
	}

	r.emitter.Emit(events.OwnershipTransferred{IdentityNo: identityNo, PreviousOwner: owner, NewOwner: newOwner})
	return nil
}

// TransactionDestination resolves the address receiver registered on chain.
func (r *Registry) TransactionDestination(receiver interfaces.IdentityNo, chain interfaces.ChainID) (interfaces.ChainAddress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.identities[receiver]
	if !exists {
		return nil, interfaces.ErrIdentityDoesntExist
	}

	address, ok := info.AddressOn(chain)
	if !ok {
		return nil, interfaces.ErrInvalidChain
	}
	return append(interfaces.ChainAddress(nil), address...), nil
}

// IdentityOf returns the identity owned by account.
func (r *Registry) IdentityOf(account interfaces.AccountID) (interfaces.IdentityNo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identityNo, ok := r.identityOf[account]
	return identityNo, ok
}

// OwnerOf returns the current owner of identityNo.
func (r *Registry) OwnerOf(identityNo interfaces.IdentityNo) (interfaces.AccountID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.ownerOf[identityNo]
	return owner, ok
}

// RecoveryAccountOf returns the recovery account of identityNo, if one is set.
func (r *Registry) RecoveryAccountOf(identityNo interfaces.IdentityNo) (interfaces.AccountID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recovery, ok := r.recoveryAccountOf[identityNo]
	return recovery, ok
}

// Identity returns a copy of the addresses of identityNo.
func (r *Registry) Identity(identityNo interfaces.IdentityNo) (interfaces.IdentityInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.identities[identityNo]
	if !ok {
		return interfaces.IdentityInfo{}, false
	}
	return info.Clone(), true
}

// IdentityDetails returns the owner, recovery account and a copy of the
// addresses of identityNo under one read lock.
func (r *Registry) IdentityDetails(identityNo interfaces.IdentityNo) (interfaces.IdentityDetails, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.identities[identityNo]
	if !ok {
		return interfaces.IdentityDetails{}, false
	}
	details := interfaces.IdentityDetails{
		IdentityNo: identityNo,
		Owner:      r.ownerOf[identityNo],
		Info:       info.Clone(),
	}
	if recovery, ok := r.recoveryAccountOf[identityNo]; ok {
		details.RecoveryAccount = &recovery
	}
	return details, true
}

// IdentityExists implements interfaces.IdentityLookup for in-process address books.
func (r *Registry) IdentityExists(ctx context.Context, identityNo interfaces.IdentityNo) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.identities[identityNo]
	return ok, nil
}

// LatestIdentityNo returns the number the next created identity will receive.
func (r *Registry) LatestIdentityNo() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestIdentityNo
}

func indexOfChain(info interfaces.IdentityInfo, chain interfaces.ChainID) int {
	for i, entry := range info.Addresses {
		if entry.Chain == chain {
			return i
		}
	}
	return -1
}
