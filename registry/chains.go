package registry

import (
	"fmt"
	"math"
	"sort"

	"github.com/ruteri/identity-registry/config"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
)

// NewWithChains creates a registry whose chain directory is pre-populated
// with chains, assigned ids 0, 1, 2... in order. Every chain is checked
// against limits and no registry is returned if any of them violates one.
// Genesis chains do not emit events.
func NewWithChains(admin interfaces.AccountID, chains []interfaces.ChainInfo, limits config.Limits, emitter events.Emitter) (*Registry, error) {
	r := New(admin, limits, emitter)
	for i, info := range chains {
		if err := limits.CheckChainInfo(info); err != nil {
			return nil, fmt.Errorf("genesis chain %d (%s): %w", i, info.Name, err)
		}
		r.chains[interfaces.ChainID(r.chainIDCount)] = info.Clone()
		r.chainIDCount++
	}
	return r, nil
}

func (r *Registry) checkAdmin(caller interfaces.AccountID) error {
	if caller != r.admin {
		return interfaces.ErrNotContractOwner
	}
	return nil
}

// AddChain appends info to the chain directory and returns its id.
func (r *Registry) AddChain(caller interfaces.AccountID, info interfaces.ChainInfo) (interfaces.ChainID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAdmin(caller); err != nil {
		return 0, err
	}
	if err := r.limits.CheckChainInfo(info); err != nil {
		return 0, err
	}
	if r.chainIDCount > math.MaxUint32 {
		return 0, interfaces.ErrCounterExhausted
	}

	chainID := interfaces.ChainID(r.chainIDCount)
	r.chainIDCount++

	stored := info.Clone()
	r.chains[chainID] = stored

	r.emitter.Emit(events.ChainAdded{ChainID: chainID, Info: stored.Clone()})
	return chainID, nil
}

// UpdateChain applies update to an existing chain. A present RPC url is
// appended to the chain's endpoints, other present fields are replaced.
func (r *Registry) UpdateChain(caller interfaces.AccountID, chain interfaces.ChainID, update interfaces.ChainUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if err := r.limits.CheckChainUpdate(update); err != nil {
		return err
	}

	info, exists := r.chains[chain]
	if !exists {
		return interfaces.ErrInvalidChain
	}

	info = info.Clone()
	if update.Name != nil {
		info.Name = *update.Name
	}
	if update.RPCURL != nil {
		info.RPCURLs = append(info.RPCURLs, *update.RPCURL)
	}
	if update.AccountType != nil {
		info.AccountType = *update.AccountType
	}
	if update.SS58Prefix != nil {
		prefix := *update.SS58Prefix
		info.SS58Prefix = &prefix
	}
	r.chains[chain] = info

	r.emitter.Emit(events.ChainUpdated{ChainID: chain, Info: info.Clone()})
	return nil
}

// RemoveChain deletes chain from the directory. Addresses identities hold
// for it are left in place and its id is not reused.
func (r *Registry) RemoveChain(caller interfaces.AccountID, chain interfaces.ChainID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if _, exists := r.chains[chain]; !exists {
		return interfaces.ErrInvalidChain
	}

	delete(r.chains, chain)

	r.emitter.Emit(events.ChainRemoved{ChainID: chain})
	return nil
}

// ChainInfoOf returns the directory entry of chain.
func (r *Registry) ChainInfoOf(chain interfaces.ChainID) (interfaces.ChainInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.chains[chain]
	if !ok {
		return interfaces.ChainInfo{}, false
	}
	return info.Clone(), true
}

// AvailableChains returns the chain directory ordered by chain id.
func (r *Registry) AvailableChains() []interfaces.Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chains := make([]interfaces.Chain, 0, len(r.chains))
	for id, info := range r.chains {
		chains = append(chains, interfaces.Chain{ID: id, Info: info.Clone()})
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains
}

// ChainIDCount returns the id the next added chain will receive.
func (r *Registry) ChainIDCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chainIDCount
}
