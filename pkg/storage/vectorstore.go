package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/khryptorgraphics/burnwise/pkg/vector"
)

// VectorKind distinguishes the three fixed-dimension vector families
// spec.md §6 persists: burn=32, weather=128, plume=64.
type VectorKind string

const (
	VectorKindBurn    VectorKind = "burn"
	VectorKindWeather VectorKind = "weather"
	VectorKindPlume   VectorKind = "plume"
)

var vectorKindDims = map[VectorKind]int{
	VectorKindBurn:    32,
	VectorKindWeather: 128,
	VectorKindPlume:   64,
}

// Match is one VectorStore.Search hit.
type Match struct {
	ID         int64
	Similarity float64
}

// VectorStore is the outbound capability spec.md §6 names:
// upsert(kind, id, vector) / search(kind, vector, k, minSim).
type VectorStore interface {
	Upsert(ctx context.Context, kind VectorKind, id int64, v []float64) error
	Search(ctx context.Context, kind VectorKind, query []float64, k int, minSim float64) ([]Match, error)
}

// jsonbVectorStore persists vectors as a JSON array of doubles in a
// jsonb column (spec.md §6: "Vector serialization: JSON array of
// doubles, fixed length per kind"), with similarity search done by an
// in-process cosine scan over the rows for that kind. No pgvector or
// similar extension exists anywhere in the retrieved pack, so the scan
// is plain Go rather than a vector-index SQL dialect.
type jsonbVectorStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func (s *jsonbVectorStore) Upsert(ctx context.Context, kind VectorKind, id int64, v []float64) error {
	dims, ok := vectorKindDims[kind]
	if !ok {
		return fmt.Errorf("unknown vector kind %q", kind)
	}
	if len(v) != dims {
		return fmt.Errorf("vector kind %q requires %d dims, got %d", kind, dims, len(v))
	}
	if !vector.AllFinite(v) {
		return fmt.Errorf("vector kind %q contains non-finite components", kind)
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feature_vectors (kind, entity_id, vector)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, entity_id) DO UPDATE SET vector = EXCLUDED.vector`,
		string(kind), id, string(encoded),
	)
	return err
}

func (s *jsonbVectorStore) Search(ctx context.Context, kind VectorKind, query []float64, k int, minSim float64) ([]Match, error) {
	if !vector.AllFinite(query) {
		return nil, fmt.Errorf("query vector contains non-finite components")
	}

	rows, err := s.db.QueryxContext(ctx, `SELECT entity_id, vector FROM feature_vectors WHERE kind = $1`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query feature_vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan feature_vectors row: %w", err)
		}
		var candidate []float64
		if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
			s.logger.Warn("skipping malformed feature vector row", "entity_id", id, "error", err)
			continue
		}
		sim := vector.CosineSimilarity(query, candidate)
		if sim >= minSim {
			matches = append(matches, Match{ID: id, Similarity: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
