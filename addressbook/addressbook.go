// Package addressbook implements per-account contact lists over identities.
//
// Before a contact is accepted the identity is confirmed through an injected
// interfaces.IdentityLookup, either the in-process registry or a remote one.
// Contacts whose identity is later removed are kept; they fail only when
// resolved.
package addressbook

import (
	"context"
	"fmt"
	"sort"

	"github.com/ruteri/identity-registry/config"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/sasha-s/go-deadlock"
)

// AddressBook holds one ordered contact list per account.
type AddressBook struct {
	mu deadlock.RWMutex

	lookup  interfaces.IdentityLookup
	limits  config.Limits
	emitter events.Emitter

	books map[interfaces.AccountID][]interfaces.Contact
}

var _ interfaces.AddressBook = (*AddressBook)(nil)

// New creates an empty address book registry. A nil emitter discards events.
func New(lookup interfaces.IdentityLookup, limits config.Limits, emitter events.Emitter) *AddressBook {
	if emitter == nil {
		emitter = events.Discard
	}
	return &AddressBook{
		lookup:  lookup,
		limits:  limits,
		emitter: emitter,
		books:   make(map[interfaces.AccountID][]interfaces.Contact),
	}
}

func (ab *AddressBook) CreateAddressBook(caller interfaces.AccountID) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if _, exists := ab.books[caller]; exists {
		return interfaces.ErrAddressBookAlreadyCreated
	}
	ab.books[caller] = []interfaces.Contact{}

	ab.emitter.Emit(events.AddressBookCreated{Owner: caller})
	return nil
}

func (ab *AddressBook) RemoveAddressBook(caller interfaces.AccountID) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if _, exists := ab.books[caller]; !exists {
		return interfaces.ErrAddressBookDoesntExist
	}
	delete(ab.books, caller)

	ab.emitter.Emit(events.AddressBookRemoved{Owner: caller})
	return nil
}

// AddIdentity appends identityNo to the caller's book. The existence query
// runs while the book lock is held, so no other operation can interleave
// between the check and the append. A lookup failure is returned wrapped and
// leaves the book unchanged.
func (ab *AddressBook) AddIdentity(ctx context.Context, caller interfaces.AccountID, identityNo interfaces.IdentityNo, nickname *string) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	contacts, exists := ab.books[caller]
	if !exists {
		return interfaces.ErrAddressBookDoesntExist
	}
	if err := ab.limits.CheckNickname(nickname); err != nil {
		return err
	}

	found, err := ab.lookup.IdentityExists(ctx, identityNo)
	if err != nil {
		return fmt.Errorf("identity lookup failed: %w", err)
	}
	if !found {
		return interfaces.ErrIdentityDoesntExist
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if indexOf(contacts, identityNo) >= 0 {
		return interfaces.ErrIdentityAlreadyAdded
	}

	contact := interfaces.Contact{IdentityNo: identityNo, Nickname: copyNickname(nickname)}
	ab.books[caller] = append(contacts, contact)

	ab.emitter.Emit(events.IdentityAdded{Owner: caller, IdentityNo: identityNo, Nickname: copyNickname(nickname)})
	return nil
}

func (ab *AddressBook) RemoveIdentity(caller interfaces.AccountID, identityNo interfaces.IdentityNo) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	contacts, exists := ab.books[caller]
	if !exists {
		return interfaces.ErrAddressBookDoesntExist
	}

	idx := indexOf(contacts, identityNo)
	if idx < 0 {
		return interfaces.ErrIdentityNotAdded
	}

	updated := make([]interfaces.Contact, 0, len(contacts)-1)
	updated = append(updated, contacts[:idx]...)
	updated = append(updated, contacts[idx+1:]...)
	ab.books[caller] = updated

	ab.emitter.Emit(events.ContactRemoved{Owner: caller, IdentityNo: identityNo})
	return nil
}

// UpdateNickname replaces the nickname of a contact. A nil nickname clears it.
func (ab *AddressBook) UpdateNickname(caller interfaces.AccountID, identityNo interfaces.IdentityNo, nickname *string) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	contacts, exists := ab.books[caller]
	if !exists {
		return interfaces.ErrAddressBookDoesntExist
	}
	if err := ab.limits.CheckNickname(nickname); err != nil {
		return err
	}

	idx := indexOf(contacts, identityNo)
	if idx < 0 {
		return interfaces.ErrIdentityNotAdded
	}
	contacts[idx].Nickname = copyNickname(nickname)

	ab.emitter.Emit(events.NickNameUpdated{Owner: caller, IdentityNo: identityNo, NewNickname: copyNickname(nickname)})
	return nil
}

// IdentitiesOf returns a copy of the contacts of account in insertion order.
func (ab *AddressBook) IdentitiesOf(account interfaces.AccountID) []interfaces.Contact {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	return copyContacts(ab.books[account])
}

func (ab *AddressBook) HasAddressBook(account interfaces.AccountID) bool {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	_, exists := ab.books[account]
	return exists
}

// Snapshot is the serialisable state of an AddressBook.
type Snapshot struct {
	Books []BookRecord `json:"books"`
}

type BookRecord struct {
	Owner    interfaces.AccountID `json:"owner"`
	Contacts []interfaces.Contact `json:"contacts"`
}

// Export returns a copy of every book, ordered by owner.
func (ab *AddressBook) Export() Snapshot {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	snap := Snapshot{Books: make([]BookRecord, 0, len(ab.books))}
	for owner, contacts := range ab.books {
		snap.Books = append(snap.Books, BookRecord{Owner: owner, Contacts: copyContacts(contacts)})
	}
	sort.Slice(snap.Books, func(i, j int) bool {
		return snap.Books[i].Owner.String() < snap.Books[j].Owner.String()
	})
	return snap
}

// Restore replaces every book with the contents of snap. Identities are not
// re-validated, matching the tolerance for dangling contacts. On error the
// address book is left unchanged.
func (ab *AddressBook) Restore(snap Snapshot) error {
	books := make(map[interfaces.AccountID][]interfaces.Contact, len(snap.Books))
	for _, book := range snap.Books {
		if _, dup := books[book.Owner]; dup {
			return fmt.Errorf("address book of %s: duplicated", book.Owner)
		}
		contacts := make([]interfaces.Contact, 0, len(book.Contacts))
		for _, contact := range book.Contacts {
			if err := ab.limits.CheckNickname(contact.Nickname); err != nil {
				return fmt.Errorf("address book of %s, identity %d: %w", book.Owner, contact.IdentityNo, err)
			}
			if indexOf(contacts, contact.IdentityNo) >= 0 {
				return fmt.Errorf("address book of %s, identity %d: %w", book.Owner, contact.IdentityNo, interfaces.ErrIdentityAlreadyAdded)
			}
			contacts = append(contacts, interfaces.Contact{IdentityNo: contact.IdentityNo, Nickname: copyNickname(contact.Nickname)})
		}
		books[book.Owner] = contacts
	}

	ab.mu.Lock()
	defer ab.mu.Unlock()
	ab.books = books
	return nil
}

func indexOf(contacts []interfaces.Contact, identityNo interfaces.IdentityNo) int {
	for i, contact := range contacts {
		if contact.IdentityNo == identityNo {
			return i
		}
	}
	return -1
}

func copyNickname(nickname *string) *string {
	if nickname == nil {
		return nil
	}
	n := *nickname
	return &n
}

func copyContacts(contacts []interfaces.Contact) []interfaces.Contact {
	out := make([]interfaces.Contact, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, interfaces.Contact{IdentityNo: contact.IdentityNo, Nickname: copyNickname(contact.Nickname)})
	}
	return out
}
