// Package archive persists parse responses in Postgres so they can be
// fetched again by id.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tedgoddard/Stanford/internal/parse"
)

// ErrNotFound is returned when no parse has the requested id.
var ErrNotFound = errors.New("parse not found")

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Record is one archived parse.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Text      string          `json:"text"`
	PosTags   []string        `json:"posTags"`
	Response  *parse.Response `json:"response"`
	RequestID string          `json:"request_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store reads and writes archived parses.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Save archives resp and returns the new record id.
func (s *Store) Save(ctx context.Context, req parse.Request, resp *parse.Response, requestID string) (uuid.UUID, error) {
	id := uuid.New()

	tags := []string(req.Overrides)
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return uuid.Nil, err
	}
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return uuid.Nil, err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO parses (id, text, pos_tags, strategy, response, request_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		id.String(), req.Text, tagsJSON, resp.Strategy, respJSON, requestID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert parse: %w", err)
	}
	return id, nil
}

// Get loads the parse with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var (
		rec       Record
		rawID     string
		tagsJSON  []byte
		respJSON  []byte
		requestID *string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id::text, text, pos_tags, response, request_id, created_at
		FROM parses WHERE id = $1`, id.String()).
		Scan(&rawID, &rec.Text, &tagsJSON, &respJSON, &requestID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select parse: %w", err)
	}

	if rec.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("stored id %q: %w", rawID, err)
	}
	if err := json.Unmarshal(tagsJSON, &rec.PosTags); err != nil {
		return nil, fmt.Errorf("decode pos tags: %w", err)
	}
	rec.Response = &parse.Response{}
	if err := json.Unmarshal(respJSON, rec.Response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if requestID != nil {
		rec.RequestID = *requestID
	}
	return &rec, nil
}
