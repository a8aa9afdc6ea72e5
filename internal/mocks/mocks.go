// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/teamserver"
)

// -- TeamServer Mock --

// MockTeamServer mocks the TeamServer API used by the verify gate.
type MockTeamServer struct {
	mock.Mock
}

// NewMockTeamServer returns a mock whose Origin is preset.
func NewMockTeamServer() *MockTeamServer {
	m := new(MockTeamServer)
	m.On("Origin").Return("integration-verify/test").Maybe()
	return m
}

func (m *MockTeamServer) Profile(ctx context.Context) (*teamserver.Profile, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.(*teamserver.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamServer) Organizations(ctx context.Context) ([]teamserver.Organization, error) {
	args := m.Called(ctx)
	if orgs := args.Get(0); orgs != nil {
		return orgs.([]teamserver.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamServer) Application(ctx context.Context, appID string) (*teamserver.Application, error) {
	args := m.Called(ctx, appID)
	if app := args.Get(0); app != nil {
		return app.(*teamserver.Application), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamServer) ApplicationsByName(ctx context.Context, name string) ([]teamserver.Application, error) {
	args := m.Called(ctx, name)
	if apps := args.Get(0); apps != nil {
		return apps.([]teamserver.Application), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamServer) SecurityCheck(ctx context.Context, req teamserver.SecurityCheckRequest) (*teamserver.SecurityCheck, error) {
	args := m.Called(ctx, req)
	if check := args.Get(0); check != nil {
		return check.(*teamserver.SecurityCheck), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamServer) QuickFilters(ctx context.Context, appID string, params teamserver.QuickFilterParams) ([]teamserver.QuickFilter, error) {
	args := m.Called(ctx, appID, params)
	if filters := args.Get(0); filters != nil {
		return filters.([]teamserver.QuickFilter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamServer) Origin() string {
	args := m.Called()
	return args.String(0)
}

// ExpectPreflight stubs a healthy profile and organization lookup.
func (m *MockTeamServer) ExpectPreflight() {
	m.On("Profile", mock.Anything).Return(&teamserver.Profile{UserUID: "a_user"}, nil).Once()
	m.On("Organizations", mock.Anything).Return([]teamserver.Organization{{OrganizationUUID: "anOrgId"}}, nil).Once()
}
