package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Database instance API: managed Postgres instances reachable with
// short-lived OAuth-derived credentials minted by the control plane.

// DatabaseInstance describes a managed Postgres instance.
type DatabaseInstance struct {
	Name         string `json:"name"`
	ReadWriteDNS string `json:"read_write_dns"`
	State        string `json:"state,omitempty"`
	PGVersion    string `json:"pg_version,omitempty"`
}

// DatabaseCredential is a short-lived Postgres password derived from the
// caller's OAuth identity.
type DatabaseCredential struct {
	Token          string    `json:"token"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// GetDatabaseInstance looks up a database instance by name.
func (c *Client) GetDatabaseInstance(ctx context.Context, name string) (*DatabaseInstance, error) {
	if name == "" {
		return nil, fmt.Errorf("database instance name is required")
	}
	var inst DatabaseInstance
	path := "/api/2.0/database/instances/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// GenerateDatabaseCredential mints a fresh short-lived credential for the
// named instances.
func (c *Client) GenerateDatabaseCredential(ctx context.Context, instanceNames ...string) (*DatabaseCredential, error) {
	req := struct {
		InstanceNames []string `json:"instance_names"`
	}{InstanceNames: instanceNames}

	var cred DatabaseCredential
	if err := c.do(ctx, http.MethodPost, "/api/2.0/database/credentials", req, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}
