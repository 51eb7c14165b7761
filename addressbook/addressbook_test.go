package addressbook

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ruteri/identity-registry/config"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = account(0xa1)
	bob   = account(0xb0)
)

func account(b byte) interfaces.AccountID {
	var a interfaces.AccountID
	a[19] = b
	return a
}

func nick(s string) *string { return &s }

// Scenario: a contact can only be added once its identity exists.
func TestAddIdentityAgainstRegistry(t *testing.T) {
	reg := registry.New(account(0xad), config.DefaultLimits(), nil)
	log := events.NewLog(0)
	book := New(reg, config.DefaultLimits(), log)

	require.NoError(t, book.CreateAddressBook(alice))

	err := book.AddIdentity(context.Background(), alice, 0, nick("bob"))
	require.ErrorIs(t, err, interfaces.ErrIdentityDoesntExist)
	assert.Empty(t, book.IdentitiesOf(alice))

	_, err = reg.CreateIdentity(bob)
	require.NoError(t, err)

	require.NoError(t, book.AddIdentity(context.Background(), alice, 0, nick("bob")))
	assert.Equal(t, []interfaces.Contact{interfaces.NewContact(0, "bob")}, book.IdentitiesOf(alice))

	records := log.Since(0, 0)
	require.Len(t, records, 2)
	assert.Equal(t, events.IdentityAdded{Owner: alice, IdentityNo: 0, Nickname: nick("bob")}, records[1].Event)

	// contacts outlive the identity they reference
	require.NoError(t, reg.RemoveIdentity(bob))
	assert.Len(t, book.IdentitiesOf(alice), 1)
}

func TestCreateRemoveAddressBook(t *testing.T) {
	lookup := &registry.MockIdentityLookup{}
	log := events.NewLog(0)
	book := New(lookup, config.DefaultLimits(), log)

	assert.False(t, book.HasAddressBook(alice))
	require.ErrorIs(t, book.RemoveAddressBook(alice), interfaces.ErrAddressBookDoesntExist)

	require.NoError(t, book.CreateAddressBook(alice))
	assert.True(t, book.HasAddressBook(alice))
	assert.NotNil(t, book.IdentitiesOf(alice))
	require.ErrorIs(t, book.CreateAddressBook(alice), interfaces.ErrAddressBookAlreadyCreated)

	require.NoError(t, book.RemoveAddressBook(alice))
	assert.False(t, book.HasAddressBook(alice))
	assert.Empty(t, book.IdentitiesOf(alice))

	records := log.Since(0, 0)
	require.Len(t, records, 2)
	assert.Equal(t, events.AddressBookCreated{Owner: alice}, records[0].Event)
	assert.Equal(t, events.AddressBookRemoved{Owner: alice}, records[1].Event)
	lookup.AssertNotCalled(t, "IdentityExists", mock.Anything, mock.Anything)
}

func TestAddIdentity(t *testing.T) {
	lookupErr := errors.New("registry unreachable")

	tests := []struct {
		name      string
		setupBook bool
		nickname  *string
		setupMock func(m *registry.MockIdentityLookup)
		err       error
		contacts  []interfaces.Contact
	}{
		{
			name:      "no address book",
			setupBook: false,
			nickname:  nick("bob"),
			setupMock: func(m *registry.MockIdentityLookup) {},
			err:       interfaces.ErrAddressBookDoesntExist,
		},
		{
			name:      "nickname too long",
			setupBook: true,
			nickname:  nick(strings.Repeat("b", config.DefaultNicknameLength+1)),
			setupMock: func(m *registry.MockIdentityLookup) {},
			err:       interfaces.ErrNickNameTooLong,
			contacts:  []interfaces.Contact{},
		},
		{
			name:      "identity missing",
			setupBook: true,
			nickname:  nick("bob"),
			setupMock: func(m *registry.MockIdentityLookup) {
				m.On("IdentityExists", mock.Anything, interfaces.IdentityNo(3)).Return(false, nil)
			},
			err:      interfaces.ErrIdentityDoesntExist,
			contacts: []interfaces.Contact{},
		},
		{
			name:      "lookup failure",
			setupBook: true,
			nickname:  nil,
			setupMock: func(m *registry.MockIdentityLookup) {
				m.On("IdentityExists", mock.Anything, interfaces.IdentityNo(3)).Return(false, lookupErr)
			},
			err:      lookupErr,
			contacts: []interfaces.Contact{},
		},
		{
			name:      "added without nickname",
			setupBook: true,
			nickname:  nil,
			setupMock: func(m *registry.MockIdentityLookup) {
				m.On("IdentityExists", mock.Anything, interfaces.IdentityNo(3)).Return(true, nil)
			},
			contacts: []interfaces.Contact{{IdentityNo: 3}},
		},
		{
			name:      "added with nickname",
			setupBook: true,
			nickname:  nick(strings.Repeat("b", config.DefaultNicknameLength)),
			setupMock: func(m *registry.MockIdentityLookup) {
				m.On("IdentityExists", mock.Anything, interfaces.IdentityNo(3)).Return(true, nil)
			},
			contacts: []interfaces.Contact{interfaces.NewContact(3, strings.Repeat("b", config.DefaultNicknameLength))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &registry.MockIdentityLookup{}
			tt.setupMock(lookup)
			log := events.NewLog(0)
			book := New(lookup, config.DefaultLimits(), log)
			if tt.setupBook {
				require.NoError(t, book.CreateAddressBook(alice))
			}
			seq := log.LastSeq()

			err := book.AddIdentity(context.Background(), alice, 3, tt.nickname)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Equal(t, seq, log.LastSeq())
			} else {
				require.NoError(t, err)
				assert.Equal(t, seq+1, log.LastSeq())
			}

			if tt.contacts != nil {
				assert.Equal(t, tt.contacts, book.IdentitiesOf(alice))
			}
			lookup.AssertExpectations(t)
		})
	}
}

func TestAddIdentityDuplicate(t *testing.T) {
	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, mock.Anything).Return(true, nil)
	book := New(lookup, config.DefaultLimits(), nil)

	require.NoError(t, book.CreateAddressBook(alice))
	require.NoError(t, book.AddIdentity(context.Background(), alice, 1, nick("one")))
	require.NoError(t, book.AddIdentity(context.Background(), alice, 2, nil))
	require.ErrorIs(t, book.AddIdentity(context.Background(), alice, 1, nick("again")), interfaces.ErrIdentityAlreadyAdded)

	assert.Equal(t, []interfaces.Contact{interfaces.NewContact(1, "one"), {IdentityNo: 2}}, book.IdentitiesOf(alice))

	// books are per account
	require.ErrorIs(t, book.AddIdentity(context.Background(), bob, 1, nil), interfaces.ErrAddressBookDoesntExist)
	require.NoError(t, book.CreateAddressBook(bob))
	require.NoError(t, book.AddIdentity(context.Background(), bob, 1, nil))
}

func TestAddIdentityCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, interfaces.IdentityNo(1)).
		Run(func(mock.Arguments) { cancel() }).
		Return(true, nil)
	book := New(lookup, config.DefaultLimits(), nil)
	require.NoError(t, book.CreateAddressBook(alice))

	err := book.AddIdentity(ctx, alice, 1, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, book.IdentitiesOf(alice))
}

func TestRemoveIdentity(t *testing.T) {
	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, mock.Anything).Return(true, nil)
	log := events.NewLog(0)
	book := New(lookup, config.DefaultLimits(), log)

	require.ErrorIs(t, book.RemoveIdentity(alice, 1), interfaces.ErrAddressBookDoesntExist)
	require.NoError(t, book.CreateAddressBook(alice))
	require.ErrorIs(t, book.RemoveIdentity(alice, 1), interfaces.ErrIdentityNotAdded)

	for no := interfaces.IdentityNo(1); no <= 3; no++ {
		require.NoError(t, book.AddIdentity(context.Background(), alice, no, nil))
	}
	require.NoError(t, book.RemoveIdentity(alice, 2))
	assert.Equal(t, []interfaces.Contact{{IdentityNo: 1}, {IdentityNo: 3}}, book.IdentitiesOf(alice))

	assert.Equal(t, events.ContactRemoved{Owner: alice, IdentityNo: 2}, log.Since(0, 0)[4].Event)
}

func TestUpdateNickname(t *testing.T) {
	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, mock.Anything).Return(true, nil)
	log := events.NewLog(0)
	book := New(lookup, config.DefaultLimits(), log)

	require.ErrorIs(t, book.UpdateNickname(alice, 1, nick("x")), interfaces.ErrAddressBookDoesntExist)
	require.NoError(t, book.CreateAddressBook(alice))
	require.ErrorIs(t, book.UpdateNickname(alice, 1, nick("x")), interfaces.ErrIdentityNotAdded)

	require.NoError(t, book.AddIdentity(context.Background(), alice, 1, nick("old")))
	require.ErrorIs(t, book.UpdateNickname(alice, 1, nick(strings.Repeat("n", 17))), interfaces.ErrNickNameTooLong)
	assert.Equal(t, []interfaces.Contact{interfaces.NewContact(1, "old")}, book.IdentitiesOf(alice))

	require.NoError(t, book.UpdateNickname(alice, 1, nick("new")))
	assert.Equal(t, []interfaces.Contact{interfaces.NewContact(1, "new")}, book.IdentitiesOf(alice))
	assert.Equal(t, events.NickNameUpdated{Owner: alice, IdentityNo: 1, NewNickname: nick("new")}, log.Since(2, 1)[0].Event)

	require.NoError(t, book.UpdateNickname(alice, 1, nil))
	assert.Equal(t, []interfaces.Contact{{IdentityNo: 1}}, book.IdentitiesOf(alice))
}

func TestIdentitiesOfReturnsCopy(t *testing.T) {
	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, mock.Anything).Return(true, nil)
	book := New(lookup, config.DefaultLimits(), nil)

	require.NoError(t, book.CreateAddressBook(alice))
	require.NoError(t, book.AddIdentity(context.Background(), alice, 1, nick("one")))

	contacts := book.IdentitiesOf(alice)
	*contacts[0].Nickname = "changed"
	contacts[0].IdentityNo = 9

	assert.Equal(t, []interfaces.Contact{interfaces.NewContact(1, "one")}, book.IdentitiesOf(alice))
}

func TestExportRestore(t *testing.T) {
	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, mock.Anything).Return(true, nil)
	book := New(lookup, config.DefaultLimits(), nil)

	require.NoError(t, book.CreateAddressBook(alice))
	require.NoError(t, book.CreateAddressBook(bob))
	require.NoError(t, book.AddIdentity(context.Background(), alice, 4, nick("four")))
	require.NoError(t, book.AddIdentity(context.Background(), alice, 2, nil))

	snap := book.Export()
	require.Len(t, snap.Books, 2)

	restored := New(lookup, config.DefaultLimits(), nil)
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, book.Export(), restored.Export())
	assert.True(t, restored.HasAddressBook(bob))
	assert.Empty(t, restored.IdentitiesOf(bob))

	invalid := Snapshot{Books: []BookRecord{{Owner: alice, Contacts: []interfaces.Contact{{IdentityNo: 1}, {IdentityNo: 1}}}}}
	require.ErrorIs(t, restored.Restore(invalid), interfaces.ErrIdentityAlreadyAdded)
	assert.Equal(t, book.Export(), restored.Export())
}
