package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

type registryStub struct {
	names []string
}

func (r *registryStub) Has(environment string) bool {
	for _, name := range r.names {
		if name == environment {
			return true
		}
	}
	return false
}

func (r *registryStub) Names() []string {
	names := append([]string(nil), r.names...)
	sort.Strings(names)
	return names
}

type preferenceStoreStub struct {
	selections map[string]string
	getErr     error
	setErr     error
}

func newPreferenceStoreStub() *preferenceStoreStub {
	return &preferenceStoreStub{selections: make(map[string]string)}
}

func (p *preferenceStoreStub) GetEnvironment(ctx context.Context, userID string) (string, error) {
	if p.getErr != nil {
		return "", p.getErr
	}
	environment, ok := p.selections[userID]
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	return environment, nil
}

func (p *preferenceStoreStub) SetEnvironment(ctx context.Context, userID, environment string) error {
	if p.setErr != nil {
		return p.setErr
	}
	p.selections[userID] = environment
	return nil
}

func newEnvironmentFixture(names ...string) (*EnvironmentService, *preferenceStoreStub, *auditStub) {
	prefs := newPreferenceStoreStub()
	audit := &auditStub{}
	svc := NewEnvironmentService(&registryStub{names: names}, prefs, audit, nil)
	return svc, prefs, audit
}

func TestEnvironmentServiceCurrentDefaultsOnMiss(t *testing.T) {
	svc, _, _ := newEnvironmentFixture("dev", "staging", "prod")

	current, err := svc.Current(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "dev", current)
}

func TestEnvironmentServiceCurrentStoredSelection(t *testing.T) {
	svc, prefs, _ := newEnvironmentFixture("dev", "prod")
	prefs.selections["u-1"] = "prod"

	current, err := svc.Current(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "prod", current)
}

func TestEnvironmentServiceCurrentStaleSelection(t *testing.T) {
	svc, prefs, _ := newEnvironmentFixture("dev", "prod")
	prefs.selections["u-1"] = "decommissioned"

	current, err := svc.Current(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "dev", current, "a stored environment that is gone falls back to the default")
}

func TestEnvironmentServiceCurrentFallbackWithoutDev(t *testing.T) {
	svc, _, _ := newEnvironmentFixture("prod", "staging")

	current, err := svc.Current(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "prod", current, "first configured name when no dev exists")
}

func TestEnvironmentServiceCurrentStoreFailure(t *testing.T) {
	svc, prefs, _ := newEnvironmentFixture("dev")
	prefs.getErr = errors.New("redis: connection refused")

	_, err := svc.Current(context.Background(), "u-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestEnvironmentServiceSwitch(t *testing.T) {
	svc, prefs, audit := newEnvironmentFixture("dev", "prod")

	require.NoError(t, svc.Switch(context.Background(), "u-1", "prod"))
	require.Equal(t, "prod", prefs.selections["u-1"])

	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionEnvironmentSwitch, audit.logs[0].Action)
	require.Equal(t, "prod", audit.logs[0].Resource)
	require.Equal(t, "u-1", *audit.logs[0].UserID)
}

func TestEnvironmentServiceSwitchUnknown(t *testing.T) {
	svc, prefs, audit := newEnvironmentFixture("dev", "prod")

	err := svc.Switch(context.Background(), "u-1", "qa")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrUnknownEnvironment.Code, appErr.Code)
	require.Empty(t, prefs.selections)
	require.Empty(t, audit.logs)
}
