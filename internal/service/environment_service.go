package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

// DefaultEnvironment is selected for users who never switched environments.
const DefaultEnvironment = "dev"

type preferenceStore interface {
	GetEnvironment(ctx context.Context, userID string) (string, error)
	SetEnvironment(ctx context.Context, userID, environment string) error
}

type environmentRegistry interface {
	Has(environment string) bool
	Names() []string
}

// EnvironmentService tracks each user's active environment selection. The
// selection is keyed per user so two operators working different environments
// never clobber each other.
type EnvironmentService struct {
	registry environmentRegistry
	prefs    preferenceStore
	audit    auditLogger
	logger   *zap.Logger
}

// NewEnvironmentService constructs the service.
func NewEnvironmentService(registry environmentRegistry, prefs preferenceStore, audit auditLogger, logger *zap.Logger) *EnvironmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnvironmentService{registry: registry, prefs: prefs, audit: audit, logger: logger}
}

// Names returns all configured environment names.
func (s *EnvironmentService) Names() []string {
	return s.registry.Names()
}

// Current returns the user's active environment. Users without a stored
// selection, or whose stored selection no longer exists, get the default.
func (s *EnvironmentService) Current(ctx context.Context, userID string) (string, error) {
	environment, err := s.prefs.GetEnvironment(ctx, userID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return s.fallback(), nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load environment selection")
	}
	if !s.registry.Has(environment) {
		s.logger.Warn("stored environment no longer configured, falling back",
			zap.String("user_id", userID),
			zap.String("environment", environment),
		)
		return s.fallback(), nil
	}
	return environment, nil
}

// Switch sets the user's active environment.
func (s *EnvironmentService) Switch(ctx context.Context, userID, environment string) error {
	if !s.registry.Has(environment) {
		return appErrors.Clone(appErrors.ErrUnknownEnvironment, "unknown environment: "+environment)
	}
	if err := s.prefs.SetEnvironment(ctx, userID, environment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store environment selection")
	}

	s.logger.Info("environment switched",
		zap.String("user_id", userID),
		zap.String("environment", environment),
	)
	if s.audit != nil {
		log := &models.AuditLog{
			UserID:    &userID,
			Action:    models.AuditActionEnvironmentSwitch,
			Resource:  environment,
			IPAddress: "system",
			UserAgent: "environment-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return nil
}

func (s *EnvironmentService) fallback() string {
	if s.registry.Has(DefaultEnvironment) {
		return DefaultEnvironment
	}
	names := s.registry.Names()
	if len(names) > 0 {
		return names[0]
	}
	return DefaultEnvironment
}
