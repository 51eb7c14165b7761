// Package checkpoint persists registry and address book state to a
// content-addressed storage backend and restores it on boot.
//
// Each checkpoint stores two blobs, one per component, and records their
// content ids in a small local head file. The head file is the only mutable
// piece of state; blobs are immutable and verified by hash when fetched.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ruteri/identity-registry/addressbook"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/registry"
	"github.com/sasha-s/go-deadlock"
)

// ErrNoCheckpoint is returned by Restore when no head file exists yet.
var ErrNoCheckpoint = errors.New("no checkpoint recorded")

// Head points at the blobs of one checkpoint.
type Head struct {
	IdentityState    string    `json:"identity_state"`
	AddressBookState string    `json:"addressbook_state"`
	SavedAt          time.Time `json:"saved_at"`
}

// Manager saves and restores checkpoints.
type Manager struct {
	registry *registry.Registry
	book     *addressbook.AddressBook
	backend  interfaces.StorageBackend
	headFile string
	log      *slog.Logger

	// OnSave, if set, is called with the outcome of every Save.
	OnSave func(err error)

	// mu serialises saves and restores, guarding last and the head file.
	mu   deadlock.Mutex
	last Head
}

func New(reg *registry.Registry, book *addressbook.AddressBook, backend interfaces.StorageBackend, headFile string, log *slog.Logger) *Manager {
	return &Manager{
		registry: reg,
		book:     book,
		backend:  backend,
		headFile: headFile,
		log:      log,
	}
}

// Save stores the current state and advances the head file. Nothing is
// written when the state is unchanged since the last save.
func (m *Manager) Save(ctx context.Context) (head Head, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if m.OnSave != nil {
			m.OnSave(err)
		}
	}()

	// The two exports are taken separately, which is fine because the address
	// book never depends on registry state for its own consistency.
	regData, err := json.Marshal(m.registry.Export())
	if err != nil {
		return Head{}, fmt.Errorf("failed to encode registry state: %w", err)
	}
	bookData, err := json.Marshal(m.book.Export())
	if err != nil {
		return Head{}, fmt.Errorf("failed to encode address book state: %w", err)
	}

	regID := interfaces.ComputeID(regData)
	bookID := interfaces.ComputeID(bookData)
	if m.last.IdentityState == regID.String() && m.last.AddressBookState == bookID.String() {
		return m.last, nil
	}

	if _, err := m.backend.Store(ctx, regData, interfaces.IdentityStateType); err != nil {
		return Head{}, fmt.Errorf("failed to store registry state: %w", err)
	}
	if _, err := m.backend.Store(ctx, bookData, interfaces.AddressBookStateType); err != nil {
		return Head{}, fmt.Errorf("failed to store address book state: %w", err)
	}

	head = Head{
		IdentityState:    regID.String(),
		AddressBookState: bookID.String(),
		SavedAt:          time.Now().UTC(),
	}
	if err := m.writeHead(head); err != nil {
		return Head{}, err
	}
	m.last = head

	m.log.Info("Saved checkpoint",
		slog.String("identity_state", regID.Short()),
		slog.String("addressbook_state", bookID.Short()))

	return head, nil
}

// Restore loads the checkpoint named by the head file.
func (m *Manager) Restore(ctx context.Context) (Head, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	head, err := m.readHead()
	if err != nil {
		return Head{}, err
	}
	if err := m.restoreFrom(ctx, head); err != nil {
		return Head{}, err
	}
	return head, nil
}

// RestoreFrom loads the checkpoint named by head. Both blobs are fetched and
// decoded before either component is touched.
func (m *Manager) RestoreFrom(ctx context.Context, head Head) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreFrom(ctx, head)
}

func (m *Manager) restoreFrom(ctx context.Context, head Head) error {
	regID, err := interfaces.NewContentIDFromHex(head.IdentityState)
	if err != nil {
		return fmt.Errorf("invalid identity state id: %w", err)
	}
	bookID, err := interfaces.NewContentIDFromHex(head.AddressBookState)
	if err != nil {
		return fmt.Errorf("invalid address book state id: %w", err)
	}

	regData, err := m.backend.Fetch(ctx, regID, interfaces.IdentityStateType)
	if err != nil {
		return fmt.Errorf("failed to fetch registry state %s: %w", regID.Short(), err)
	}
	bookData, err := m.backend.Fetch(ctx, bookID, interfaces.AddressBookStateType)
	if err != nil {
		return fmt.Errorf("failed to fetch address book state %s: %w", bookID.Short(), err)
	}

	var regSnap registry.Snapshot
	if err := json.Unmarshal(regData, &regSnap); err != nil {
		return fmt.Errorf("failed to decode registry state: %w", err)
	}
	var bookSnap addressbook.Snapshot
	if err := json.Unmarshal(bookData, &bookSnap); err != nil {
		return fmt.Errorf("failed to decode address book state: %w", err)
	}

	if err := m.registry.Restore(regSnap); err != nil {
		return fmt.Errorf("failed to restore registry: %w", err)
	}
	if err := m.book.Restore(bookSnap); err != nil {
		return fmt.Errorf("failed to restore address book: %w", err)
	}

	m.last = head
	m.log.Info("Restored checkpoint",
		slog.String("identity_state", regID.Short()),
		slog.String("addressbook_state", bookID.Short()),
		slog.Time("saved_at", head.SavedAt),
		slog.Uint64("latest_identity_no", regSnap.LatestIdentityNo))

	return nil
}

// Run saves a checkpoint every interval until ctx is cancelled. Failed saves
// are logged and retried on the next tick. Run returns once no save is in
// flight.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid checkpoint interval %s: must be positive", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Save(ctx); err != nil {
				m.log.Error("Checkpoint failed", "err", err)
			}
		}
	}
}

func (m *Manager) readHead() (Head, error) {
	data, err := os.ReadFile(m.headFile)
	if errors.Is(err, fs.ErrNotExist) {
		return Head{}, ErrNoCheckpoint
	}
	if err != nil {
		return Head{}, fmt.Errorf("failed to read head file: %w", err)
	}

	var head Head
	if err := json.Unmarshal(data, &head); err != nil {
		return Head{}, fmt.Errorf("failed to decode head file %s: %w", m.headFile, err)
	}
	return head, nil
}

func (m *Manager) writeHead(head Head) error {
	data, err := json.MarshalIndent(head, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.headFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create head file directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".head-*")
	if err != nil {
		return fmt.Errorf("failed to create head file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write head file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write head file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.headFile); err != nil {
		return fmt.Errorf("failed to move head file into place: %w", err)
	}
	return nil
}
