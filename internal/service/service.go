// Package service is the single entry point to the SQL backends and the
// platform client. One Service per process, passed explicitly to request
// handlers; backends are constructed lazily on first use.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lakegate/internal/config"
	"github.com/lakegate/internal/database"
	"github.com/lakegate/internal/logging"
	"github.com/lakegate/internal/platform"
)

// Backend kinds accepted by Backend.
const (
	KindWarehouse = "warehouse"
	KindLakebase  = "lakebase"
)

// Service routes fetches to the appropriate backend and exposes the
// underlying platform client for operations outside the SQL interface.
// It carries no retry or caching logic of its own.
type Service struct {
	cfg    *config.Config
	client *platform.Client

	mu        sync.Mutex
	warehouse *database.WarehouseBackend
	lakebase  *database.LakebaseBackend
}

// New creates the service and its platform client. Backends are not opened
// until first use.
func New(cfg *config.Config) (*Service, error) {
	pcfg, err := cfg.Platform.ToPlatformConfig()
	if err != nil {
		return nil, err
	}
	client, err := platform.New(pcfg)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, client: client}, nil
}

// Platform returns the underlying platform client.
func (s *Service) Platform() *platform.Client {
	return s.client
}

// CurrentUser returns the identity behind the current credentials.
func (s *Service) CurrentUser(ctx context.Context) (*platform.User, error) {
	return s.client.CurrentUser(ctx)
}

// Backend returns the backend for the given kind.
func (s *Service) Backend(ctx context.Context, kind string) (database.SQLBackend, error) {
	switch kind {
	case KindWarehouse:
		return s.Warehouse()
	case KindLakebase:
		return s.Lakebase(ctx)
	default:
		return nil, fmt.Errorf("unknown backend kind: %q", kind)
	}
}

// Warehouse returns the warehouse backend, constructing it on first access.
func (s *Service) Warehouse() (*database.WarehouseBackend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warehouse != nil {
		return s.warehouse, nil
	}

	wcfg, err := s.cfg.Warehouse.ToWarehouseConfig()
	if err != nil {
		return nil, err
	}
	backend, err := database.NewWarehouseBackend(s.client, *wcfg)
	if err != nil {
		return nil, err
	}
	s.warehouse = backend

	logging.Info("warehouse backend ready", logging.Warehouse(wcfg.WarehouseID))
	return backend, nil
}

// Lakebase returns the Lakebase backend, constructing it on first access.
// When only the instance name is configured, the host is resolved via the
// platform database API.
func (s *Service) Lakebase(ctx context.Context) (*database.LakebaseBackend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lakebase != nil {
		return s.lakebase, nil
	}

	lcfg, err := s.cfg.Lakebase.ToLakebaseConfig(s.cfg.Platform.PerRequestAuth)
	if err != nil {
		return nil, err
	}

	if lcfg.Host == "" {
		inst, err := s.client.GetDatabaseInstance(ctx, s.cfg.Lakebase.Instance)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve lakebase instance %q: %w", s.cfg.Lakebase.Instance, err)
		}
		lcfg.Host = inst.ReadWriteDNS
		logging.Info("lakebase instance resolved",
			logging.Instance(inst.Name),
			slog.String("host", inst.ReadWriteDNS))
	}

	if lcfg.User == "" {
		// The token user convention for OAuth-authenticated Postgres.
		user, err := s.client.CurrentUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve lakebase user: %w", err)
		}
		lcfg.User = user.UserName
	}

	var source database.DatabaseCredentialSource
	if s.cfg.Platform.PerRequestAuth {
		source = &perRequestSource{}
	} else {
		source = &serviceCredentialSource{
			client:   s.client,
			instance: s.cfg.Lakebase.Instance,
		}
	}

	backend, err := database.NewLakebaseBackend(source, *lcfg)
	if err != nil {
		return nil, err
	}
	s.lakebase = backend
	return backend, nil
}

// OpenLakebase returns the Lakebase backend if it has already been
// constructed, nil otherwise. Health probes use this to avoid forcing a
// connection open.
func (s *Service) OpenLakebase() *database.LakebaseBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lakebase
}

// Close tears down any backends that were constructed.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.lakebase != nil {
		if err := s.lakebase.Close(ctx); err != nil {
			firstErr = err
		}
		s.lakebase = nil
	}
	if s.warehouse != nil {
		if err := s.warehouse.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		s.warehouse = nil
	}
	return firstErr
}

// serviceCredentialSource mints short-lived database credentials from the
// workspace service identity.
type serviceCredentialSource struct {
	client   *platform.Client
	instance string
}

func (s *serviceCredentialSource) DatabaseCredential(ctx context.Context) (database.Credential, error) {
	cred, err := s.client.GenerateDatabaseCredential(ctx, s.instance)
	if err != nil {
		return database.Credential{}, err
	}
	return database.Credential{Token: cred.Token, Expiry: cred.ExpirationTime}, nil
}

// perRequestSource hands back the caller's forwarded token. No expiry: the
// token lives as long as the request.
type perRequestSource struct{}

func (s *perRequestSource) DatabaseCredential(ctx context.Context) (database.Credential, error) {
	token := platform.UserTokenFromContext(ctx)
	if token == "" {
		return database.Credential{}, fmt.Errorf("per-request auth enabled but no forwarded token on request")
	}
	return database.Credential{Token: token}, nil
}
