package caveo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// SoyArchive implements Archive using soy for PostgreSQL persistence
// with pgvector for semantic search over past exchanges.
type SoyArchive struct {
	exchanges *soy.Soy[Exchange]
	db        *sqlx.DB
}

// NewSoyArchive creates a new soy-backed Archive implementation.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	exchanges, err := soy.New[Exchange](db, "exchanges", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exchanges table: %w", err)
	}

	return &SoyArchive{
		exchanges: exchanges,
		db:        db,
	}, nil
}

// AppendExchange persists a completed exchange.
func (a *SoyArchive) AppendExchange(ctx context.Context, exchange *Exchange) error {
	inserted, err := a.exchanges.Insert().Exec(ctx, exchange)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	exchange.ID = inserted.ID
	return nil
}

// RecentTurns returns the last exchanges of a session flattened into
// user/assistant turns, oldest first. Refused exchanges contribute only
// the user turn; there is no generated content to replay.
func (a *SoyArchive) RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Each exchange expands to at most two turns.
	rows, err := a.exchanges.Query().
		Where("session_id", "=", "session_id").
		OrderBy("created", "desc").
		Limit((limit + 1) / 2).
		Exec(ctx, map[string]any{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to get recent exchanges: %w", err)
	}

	// Rows come back newest first; replay them oldest first.
	turns := make([]Turn, 0, len(rows)*2)
	for i := len(rows) - 1; i >= 0; i-- {
		ex := rows[i]
		turns = append(turns, Turn{Role: "user", Content: ex.Query})
		if ex.Answer != "" {
			turns = append(turns, Turn{Role: "assistant", Content: ex.Answer})
		}
	}

	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	return turns, nil
}

// SearchExchanges finds past exchanges semantically similar to the query
// embedding. Exchanges without embeddings are excluded from results.
func (a *SoyArchive) SearchExchanges(ctx context.Context, embedding Vector, limit int) ([]*Exchange, error) {
	results, err := a.exchanges.Query().
		WhereNotNull("embedding").
		OrderByExpr("embedding", "<->", "query_embedding", "asc").
		Limit(limit).
		Exec(ctx, map[string]any{"query_embedding": embedding})
	if err != nil {
		return nil, fmt.Errorf("failed to search exchanges: %w", err)
	}
	return results, nil
}

// Close closes the underlying database connection.
func (a *SoyArchive) Close() error {
	return a.db.Close()
}

var _ Archive = (*SoyArchive)(nil)
