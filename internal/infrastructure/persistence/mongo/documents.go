package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
	"github.com/sweethome/vacancies-bot/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT MODELS
// ══════════════════════════════════════════════════════════════════════════════

type vacancyDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Position    string             `bson:"position"`
	Description string             `bson:"description"`
	Salary      int64              `bson:"salary"`
	CreatedAt   time.Time          `bson:"created_at"`
}

type portfolioDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Position    string               `bson:"position"`
	Experiences []profile.Experience `bson:"experiences"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT STORE
// ══════════════════════════════════════════════════════════════════════════════

// DocumentStore implements vacancy.BodyStore and profile.PortfolioStore.
// Reads go through a circuit breaker; when it is open they fail fast with
// shared.ErrDocumentStoreUnavailable.
type DocumentStore struct {
	conn    *Connection
	breaker *circuitbreaker.CircuitBreaker
}

// NewDocumentStore creates a store. A nil breaker disables the guard.
func NewDocumentStore(conn *Connection, breaker *circuitbreaker.CircuitBreaker) *DocumentStore {
	return &DocumentStore{conn: conn, breaker: breaker}
}

func (s *DocumentStore) guard(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.conn.queryTimeout)
	defer cancel()

	if s.breaker == nil {
		return fn(ctx)
	}

	err := s.breaker.Execute(ctx, fn)
	if circuitbreaker.IsRejected(err) {
		return shared.WrapError("documents", "Request", shared.ErrServiceUnavailable, "document store is unavailable", err)
	}
	return err
}

// parseRef turns a reference into an ObjectID. Malformed references cannot
// point at any document, so callers treat them as missing.
func parseRef(ref string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Vacancy bodies
// ─────────────────────────────────────────────────────────────────────────────

// InsertBody stores a vacancy body and returns its reference.
func (s *DocumentStore) InsertBody(ctx context.Context, body vacancy.Body) (string, error) {
	doc := vacancyDocument{
		Position:    body.Position,
		Description: body.Description,
		Salary:      body.Salary,
		CreatedAt:   time.Now().UTC(),
	}
	return s.insert(ctx, vacanciesCollection, doc)
}

// GetBody returns None when the document does not exist.
func (s *DocumentStore) GetBody(ctx context.Context, ref string) (mo.Option[vacancy.Body], error) {
	id, ok := parseRef(ref)
	if !ok {
		return mo.None[vacancy.Body](), nil
	}

	var doc vacancyDocument
	found, err := s.findOne(ctx, vacanciesCollection, id, &doc)
	if err != nil || !found {
		return mo.None[vacancy.Body](), err
	}

	return mo.Some(vacancy.Body{
		Position:    doc.Position,
		Description: doc.Description,
		Salary:      doc.Salary,
	}), nil
}

// DeleteBody removes a vacancy body. Missing documents are not an error.
func (s *DocumentStore) DeleteBody(ctx context.Context, ref string) error {
	id, ok := parseRef(ref)
	if !ok {
		return nil
	}

	return s.guard(ctx, func(ctx context.Context) error {
		if _, err := s.conn.collection(vacanciesCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return fmt.Errorf("mongo: delete vacancy body: %w", err)
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Portfolios
// ─────────────────────────────────────────────────────────────────────────────

// InsertPortfolio stores a portfolio and returns its reference.
func (s *DocumentStore) InsertPortfolio(ctx context.Context, p profile.Portfolio) (string, error) {
	return s.insert(ctx, portfoliosCollection, toPortfolioDocument(p))
}

// GetPortfolio returns None when the document does not exist.
func (s *DocumentStore) GetPortfolio(ctx context.Context, ref string) (mo.Option[profile.Portfolio], error) {
	id, ok := parseRef(ref)
	if !ok {
		return mo.None[profile.Portfolio](), nil
	}

	var doc portfolioDocument
	found, err := s.findOne(ctx, portfoliosCollection, id, &doc)
	if err != nil || !found {
		return mo.None[profile.Portfolio](), err
	}

	return mo.Some(profile.Portfolio{Position: doc.Position, Experiences: doc.Experiences}), nil
}

// ReplacePortfolio overwrites the document so the seeker's reference stays valid.
func (s *DocumentStore) ReplacePortfolio(ctx context.Context, ref string, p profile.Portfolio) error {
	id, ok := parseRef(ref)
	if !ok {
		return shared.NewDomainError("documents", "ReplacePortfolio", shared.ErrNotFound, "portfolio not found")
	}

	return s.guard(ctx, func(ctx context.Context) error {
		res, err := s.conn.collection(portfoliosCollection).ReplaceOne(ctx, bson.M{"_id": id}, toPortfolioDocument(p))
		if err != nil {
			return fmt.Errorf("mongo: replace portfolio: %w", err)
		}
		if res.MatchedCount == 0 {
			return shared.NewDomainError("documents", "ReplacePortfolio", shared.ErrNotFound, "portfolio not found")
		}
		return nil
	})
}

func toPortfolioDocument(p profile.Portfolio) portfolioDocument {
	experiences := p.Experiences
	if experiences == nil {
		experiences = []profile.Experience{}
	}
	return portfolioDocument{
		Position:    p.Position,
		Experiences: experiences,
		UpdatedAt:   time.Now().UTC(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *DocumentStore) insert(ctx context.Context, collection string, doc any) (string, error) {
	var ref string
	err := s.guard(ctx, func(ctx context.Context) error {
		res, err := s.conn.collection(collection).InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("mongo: insert into %s: %w", collection, err)
		}
		id, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return fmt.Errorf("mongo: unexpected inserted id type %T", res.InsertedID)
		}
		ref = id.Hex()
		return nil
	})
	return ref, err
}

func (s *DocumentStore) findOne(ctx context.Context, collection string, id primitive.ObjectID, out any) (bool, error) {
	found := false
	err := s.guard(ctx, func(ctx context.Context) error {
		err := s.conn.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mongo: find in %s: %w", collection, err)
		}
		found = true
		return nil
	})
	return found, err
}
