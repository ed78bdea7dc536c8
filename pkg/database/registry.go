package database

import (
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/admin-db/dbadmin-api/pkg/config"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

// Registry maps logical environment names to their database handles.
// Environment databases are isolated from each other and from the metadata
// store; the registry is the single place that knows how to reach them.
type Registry struct {
	environments map[string]*sqlx.DB
}

// NewRegistry opens a connection pool per configured environment.
func NewRegistry(cfgs map[string]config.DatabaseConfig) (*Registry, error) {
	environments := make(map[string]*sqlx.DB, len(cfgs))
	for name, cfg := range cfgs {
		db, err := NewPostgres(cfg)
		if err != nil {
			for _, opened := range environments {
				_ = opened.Close()
			}
			return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to connect to "+name+" environment")
		}
		environments[name] = db
	}
	return &Registry{environments: environments}, nil
}

// NewRegistryFromHandles builds a registry around existing handles. Used by tests.
func NewRegistryFromHandles(handles map[string]*sqlx.DB) *Registry {
	environments := make(map[string]*sqlx.DB, len(handles))
	for name, db := range handles {
		environments[name] = db
	}
	return &Registry{environments: environments}
}

// Get resolves the database handle for an environment.
func (r *Registry) Get(environment string) (*sqlx.DB, error) {
	db, ok := r.environments[environment]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownEnvironment, "unknown environment: "+environment)
	}
	return db, nil
}

// Has reports whether the environment is registered.
func (r *Registry) Has(environment string) bool {
	_, ok := r.environments[environment]
	return ok
}

// Names returns the registered environment names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.environments))
	for name := range r.environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every environment connection pool.
func (r *Registry) Close() error {
	var firstErr error
	for _, db := range r.environments {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
