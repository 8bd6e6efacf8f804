// Package neo4j implements the graph store: Seeker, Recruiter and Vacancy
// nodes joined by PUBLISHED_BY and APPLIED_TO relationships.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Config holds Neo4j connection configuration.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// DefaultConfig returns defaults for a local server.
func DefaultConfig() Config {
	return Config{
		URI:      "neo4j://localhost:7687",
		User:     "neo4j",
		Database: "neo4j",
	}
}

// Connection owns the driver.
type Connection struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect creates the driver and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*Connection, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: failed to verify connectivity: %w", err)
	}

	return &Connection{driver: driver, database: cfg.Database}, nil
}

// Ping verifies connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (c *Connection) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Connection) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: c.database})
}

var schema = []string{
	"CREATE CONSTRAINT seeker_user_id IF NOT EXISTS FOR (s:Seeker) REQUIRE s.user_id IS UNIQUE",
	"CREATE CONSTRAINT recruiter_user_id IF NOT EXISTS FOR (r:Recruiter) REQUIRE r.user_id IS UNIQUE",
	"CREATE CONSTRAINT vacancy_id IF NOT EXISTS FOR (v:Vacancy) REQUIRE v.vacancy_id IS UNIQUE",
}

// EnsureSchema creates the uniqueness constraints MERGE relies on.
func (c *Connection) EnsureSchema(ctx context.Context) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schema {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("neo4j: schema: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("neo4j: schema: %w", err)
		}
	}
	return nil
}
