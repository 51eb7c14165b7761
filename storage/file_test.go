package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	require.True(t, backend.Available(context.Background()))
	require.Equal(t, "file://"+dir, backend.LocationURI())

	data := []byte(`{"latest_identity_no":3}`)
	id, err := backend.Store(context.Background(), data, interfaces.IdentityStateType)
	require.NoError(t, err)
	require.Equal(t, interfaces.ComputeID(data), id)

	_, err = os.Stat(filepath.Join(dir, "identity-state", id.String()))
	require.NoError(t, err)

	got, err := backend.Fetch(context.Background(), id, interfaces.IdentityStateType)
	require.NoError(t, err)
	require.Equal(t, data, got)

	// content types are separate namespaces
	_, err = backend.Fetch(context.Background(), id, interfaces.AddressBookStateType)
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)

	// storing twice is idempotent
	again, err := backend.Store(context.Background(), data, interfaces.IdentityStateType)
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestFactory(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())
	dir := t.TempDir()

	location, err := interfaces.NewStorageBackendLocation("file://" + dir)
	require.NoError(t, err)
	backend, err := factory.StorageBackendFor(location)
	require.NoError(t, err)
	require.IsType(t, &FileBackend{}, backend)

	location, err = interfaces.NewStorageBackendLocation("s3://AKID:SECRET@checkpoints/registry?region=eu-west-1&endpoint=http://localhost:9000&path_style=true")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(location)
	require.NoError(t, err)
	require.Equal(t, "s3-checkpoints", backend.Name())

	location, err = interfaces.NewStorageBackendLocation("ipfs://localhost/identity-registry?timeout=5s")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(location)
	require.NoError(t, err)
	require.Equal(t, "ipfs-localhost:5001", backend.Name())

	location, err = interfaces.NewStorageBackendLocation("ipfs://localhost:5001/x?timeout=soon")
	require.NoError(t, err)
	_, err = factory.StorageBackendFor(location)
	require.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	location, err = interfaces.NewStorageBackendLocation("vault://vault.local:8200/secret/registry?token=root&tls=false")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(location)
	require.NoError(t, err)
	require.Equal(t, "vault-secret-registry", backend.Name())

	_, err = interfaces.NewStorageBackendLocation("github://owner/repo")
	require.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	multi, err := factory.CreateMultiBackendFromURIs([]string{"file://" + dir, "file://" + t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "multi-storage", multi.Name())

	data := []byte("checkpoint")
	id, err := multi.Store(context.Background(), data, interfaces.AddressBookStateType)
	require.NoError(t, err)
	got, err := multi.Fetch(context.Background(), id, interfaces.AddressBookStateType)
	require.NoError(t, err)
	require.Equal(t, data, got)
}
