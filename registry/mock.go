package registry

import (
	"context"

	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockIdentityLookup mocks the IdentityLookup interface
type MockIdentityLookup struct {
	mock.Mock
}

// IdentityExists mocks the IdentityExists method
func (m *MockIdentityLookup) IdentityExists(ctx context.Context, identityNo interfaces.IdentityNo) (bool, error) {
	args := m.Called(ctx, identityNo)
	return args.Bool(0), args.Error(1)
}
