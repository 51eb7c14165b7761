package registry

import (
	"fmt"
	"math"
	"sort"

	"github.com/ruteri/identity-registry/interfaces"
)

// Snapshot is the serialisable state of a Registry. The counters are part of
// the snapshot so that restored registries never reallocate an identifier.
type Snapshot struct {
	LatestIdentityNo uint64             `json:"latest_identity_no"`
	ChainIDCount     uint64             `json:"chain_id_count"`
	Identities       []IdentityRecord   `json:"identities"`
	Chains           []interfaces.Chain `json:"chains"`
}

// IdentityRecord is one identity in a Snapshot.
type IdentityRecord struct {
	IdentityNo      interfaces.IdentityNo          `json:"identity_no"`
	Owner           interfaces.AccountID           `json:"owner"`
	RecoveryAccount *interfaces.AccountID          `json:"recovery_account,omitempty"`
	Addresses       []interfaces.ChainAddressEntry `json:"addresses"`
}

// Export returns a consistent copy of the registry state, identities and
// chains ordered by number.
func (r *Registry) Export() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		LatestIdentityNo: r.latestIdentityNo,
		ChainIDCount:     r.chainIDCount,
		Identities:       make([]IdentityRecord, 0, len(r.identities)),
		Chains:           make([]interfaces.Chain, 0, len(r.chains)),
	}

	for identityNo, info := range r.identities {
		record := IdentityRecord{
			IdentityNo: identityNo,
			Owner:      r.ownerOf[identityNo],
			Addresses:  info.Clone().Addresses,
		}
		if recovery, ok := r.recoveryAccountOf[identityNo]; ok {
			record.RecoveryAccount = &recovery
		}
		snap.Identities = append(snap.Identities, record)
	}
	sort.Slice(snap.Identities, func(i, j int) bool {
		return snap.Identities[i].IdentityNo < snap.Identities[j].IdentityNo
	})

	for id, info := range r.chains {
		snap.Chains = append(snap.Chains, interfaces.Chain{ID: id, Info: info.Clone()})
	}
	sort.Slice(snap.Chains, func(i, j int) bool { return snap.Chains[i].ID < snap.Chains[j].ID })

	return snap
}

// Restore replaces the registry state with snap. The snapshot is validated
// against the registry's invariants and limits first; on error the registry
// is left unchanged. Restore emits no events.
func (r *Registry) Restore(snap Snapshot) error {
	if snap.LatestIdentityNo > math.MaxUint32+1 || snap.ChainIDCount > math.MaxUint32+1 {
		return fmt.Errorf("snapshot counters out of range")
	}

	identityOf := make(map[interfaces.AccountID]interfaces.IdentityNo, len(snap.Identities))
	ownerOf := make(map[interfaces.IdentityNo]interfaces.AccountID, len(snap.Identities))
	recoveryAccountOf := make(map[interfaces.IdentityNo]interfaces.AccountID)
	identities := make(map[interfaces.IdentityNo]interfaces.IdentityInfo, len(snap.Identities))

	for _, record := range snap.Identities {
		if uint64(record.IdentityNo) >= snap.LatestIdentityNo {
			return fmt.Errorf("identity %d: not below latest identity number %d", record.IdentityNo, snap.LatestIdentityNo)
		}
		if _, dup := ownerOf[record.IdentityNo]; dup {
			return fmt.Errorf("identity %d: duplicated", record.IdentityNo)
		}
		if _, dup := identityOf[record.Owner]; dup {
			return fmt.Errorf("identity %d: owner %s %w", record.IdentityNo, record.Owner, interfaces.ErrAlreadyIdentityOwner)
		}

		info := interfaces.IdentityInfo{Addresses: make([]interfaces.ChainAddressEntry, 0, len(record.Addresses))}
		for _, entry := range record.Addresses {
			if err := r.limits.CheckAddress(entry.Address); err != nil {
				return fmt.Errorf("identity %d chain %d: %w", record.IdentityNo, entry.Chain, err)
			}
			if _, dup := info.AddressOn(entry.Chain); dup {
				return fmt.Errorf("identity %d chain %d: %w", record.IdentityNo, entry.Chain, interfaces.ErrAddressAlreadyAdded)
			}
			info.Addresses = append(info.Addresses, interfaces.ChainAddressEntry{
				Chain:   entry.Chain,
				Address: append(interfaces.ChainAddress(nil), entry.Address...),
			})
		}

		identityOf[record.Owner] = record.IdentityNo
		ownerOf[record.IdentityNo] = record.Owner
		identities[record.IdentityNo] = info
		if record.RecoveryAccount != nil {
			recoveryAccountOf[record.IdentityNo] = *record.RecoveryAccount
		}
	}

	chains := make(map[interfaces.ChainID]interfaces.ChainInfo, len(snap.Chains))
	for _, chain := range snap.Chains {
		if uint64(chain.ID) >= snap.ChainIDCount {
			return fmt.Errorf("chain %d: not below chain id count %d", chain.ID, snap.ChainIDCount)
		}
		if _, dup := chains[chain.ID]; dup {
			return fmt.Errorf("chain %d: duplicated", chain.ID)
		}
		if err := r.limits.CheckChainInfo(chain.Info); err != nil {
			return fmt.Errorf("chain %d: %w", chain.ID, err)
		}
		chains[chain.ID] = chain.Info.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.identityOf = identityOf
	r.ownerOf = ownerOf
	r.recoveryAccountOf = recoveryAccountOf
	r.identities = identities
	r.chains = chains
	r.latestIdentityNo = snap.LatestIdentityNo
	r.chainIDCount = snap.ChainIDCount
	return nil
}
