package caveo

import (
	"context"
	"time"
)

// Turn is one prior conversation message, exposed to the pipeline only as
// an opaque role/content pair. The pipeline never inspects how the
// archive stores it.
type Turn struct {
	Role    string
	Content string
}

// Exchange is one completed pipeline pass: the query, the decisions made
// about it, and the envelope returned. The optional embedding enables
// semantic search over past exchanges.
type Exchange struct {
	ID        string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	SessionID string    `db:"session_id" type:"text" constraints:"notnull"`
	TraceID   string    `db:"trace_id" type:"text" constraints:"notnull,unique"`
	Query     string    `db:"query" type:"text" constraints:"notnull"`
	Answer    string    `db:"answer" type:"text"`
	Status    string    `db:"status" type:"text" constraints:"notnull"`
	Route     string    `db:"route" type:"text" constraints:"notnull"`
	Depth     string    `db:"depth" type:"text"`
	Created   time.Time `db:"created" type:"timestamp" constraints:"notnull"`
	Embedding Vector    `db:"embedding" type:"vector(1536)"`
}

// Archive defines the persistence collaborator. The pipeline calls it
// only to fetch prior turns and to append finished exchanges; failures
// are logged as signals and never fail a request.
type Archive interface {
	// AppendExchange persists a completed exchange.
	AppendExchange(ctx context.Context, exchange *Exchange) error

	// RecentTurns returns the last turns of a session, oldest first,
	// as opaque role/content pairs.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// SearchExchanges finds past exchanges semantically similar to the
	// query embedding, ordered by similarity.
	SearchExchanges(ctx context.Context, embedding Vector, limit int) ([]*Exchange, error)
}
