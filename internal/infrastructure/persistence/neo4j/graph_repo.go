package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// GraphRepository implements profile.Graph and vacancy.Graph.
type GraphRepository struct {
	conn *Connection
}

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(conn *Connection) *GraphRepository {
	return &GraphRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// People
// ─────────────────────────────────────────────────────────────────────────────

// AddSeeker creates or finds the Seeker node and returns its element ID.
func (r *GraphRepository) AddSeeker(ctx context.Context, userID int64) (string, error) {
	query := `
		MERGE (s:Seeker {user_id: $userID})
		ON CREATE SET s.created_at = datetime()
		RETURN elementId(s) AS ref
	`
	return r.writeRef(ctx, query, map[string]any{"userID": userID})
}

// AddRecruiter creates or finds the Recruiter node and binds it to the company.
func (r *GraphRepository) AddRecruiter(ctx context.Context, userID, companyID int64) (string, error) {
	query := `
		MERGE (r:Recruiter {user_id: $userID})
		ON CREATE SET r.created_at = datetime()
		SET r.company_id = $companyID
		RETURN elementId(r) AS ref
	`
	return r.writeRef(ctx, query, map[string]any{"userID": userID, "companyID": companyID})
}

func (r *GraphRepository) writeRef(ctx context.Context, query string, params map[string]any) (string, error) {
	session := r.conn.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return "", fmt.Errorf("neo4j: failed to write node: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return "", fmt.Errorf("neo4j: failed to read node ref: %w", err)
	}

	return getStringFromRecord(record, "ref"), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Vacancies
// ─────────────────────────────────────────────────────────────────────────────

// AddVacancy creates the Vacancy node and its PUBLISHED_BY edge.
func (r *GraphRepository) AddVacancy(ctx context.Context, vacancyID, recruiterID int64) error {
	query := `
		MERGE (rec:Recruiter {user_id: $recruiterID})
		MERGE (v:Vacancy {vacancy_id: $vacancyID})
		ON CREATE SET v.created_at = datetime()
		MERGE (v)-[:PUBLISHED_BY]->(rec)
	`
	return r.exec(ctx, query, map[string]any{"vacancyID": vacancyID, "recruiterID": recruiterID})
}

// RemoveVacancy deletes the node together with its edges.
func (r *GraphRepository) RemoveVacancy(ctx context.Context, vacancyID int64) error {
	query := `
		MATCH (v:Vacancy {vacancy_id: $vacancyID})
		DETACH DELETE v
	`
	return r.exec(ctx, query, map[string]any{"vacancyID": vacancyID})
}

// Apply creates the APPLIED_TO edge. It reports false when the seeker had
// already applied.
func (r *GraphRepository) Apply(ctx context.Context, seekerID, vacancyID int64) (bool, error) {
	query := `
		MATCH (s:Seeker {user_id: $seekerID})
		MATCH (v:Vacancy {vacancy_id: $vacancyID})
		OPTIONAL MATCH (s)-[existing:APPLIED_TO]->(v)
		WITH s, v, existing IS NULL AS created
		MERGE (s)-[a:APPLIED_TO]->(v)
		ON CREATE SET a.applied_at = datetime()
		RETURN created
	`

	session := r.conn.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]any{"seekerID": seekerID, "vacancyID": vacancyID})
	if err != nil {
		return false, fmt.Errorf("neo4j: failed to apply: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, fmt.Errorf("neo4j: failed to apply: %w", err)
		}
		return false, shared.NewDomainError("vacancy", "Apply", shared.ErrNotFound, "seeker or vacancy node not found")
	}

	created, _ := result.Record().Get("created")
	ok, _ := created.(bool)
	return ok, nil
}

// Applicants returns the user IDs of seekers that applied, earliest first.
func (r *GraphRepository) Applicants(ctx context.Context, vacancyID int64) ([]int64, error) {
	query := `
		MATCH (s:Seeker)-[a:APPLIED_TO]->(:Vacancy {vacancy_id: $vacancyID})
		RETURN s.user_id AS id
		ORDER BY a.applied_at ASC
	`
	return r.readIDs(ctx, query, map[string]any{"vacancyID": vacancyID})
}

// Applications returns the vacancy IDs the seeker applied to, latest first.
func (r *GraphRepository) Applications(ctx context.Context, seekerID int64) ([]int64, error) {
	query := `
		MATCH (:Seeker {user_id: $seekerID})-[a:APPLIED_TO]->(v:Vacancy)
		RETURN v.vacancy_id AS id
		ORDER BY a.applied_at DESC
	`
	return r.readIDs(ctx, query, map[string]any{"seekerID": seekerID})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (r *GraphRepository) exec(ctx context.Context, query string, params map[string]any) error {
	session := r.conn.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("neo4j: query failed: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("neo4j: query failed: %w", err)
	}
	return nil
}

func (r *GraphRepository) readIDs(ctx context.Context, query string, params map[string]any) ([]int64, error) {
	session := r.conn.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("neo4j: query failed: %w", err)
	}

	ids := []int64{}
	for result.Next(ctx) {
		ids = append(ids, getInt64FromRecord(result.Record(), "id"))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("neo4j: failed to read rows: %w", err)
	}

	return ids, nil
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	str, _ := val.(string)
	return str
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
