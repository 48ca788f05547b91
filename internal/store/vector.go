package store

import (
	"database/sql/driver"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimensions is the fixed length of every stored embedding.
const EmbeddingDimensions = 1536

// Vector is an embedding column. It is written in pgvector's text form, so the
// same column works as vector(1536) on postgres and as plain text on sqlite.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return pgvector.NewVector(v).Value()
}

func (v *Vector) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}
	var pv pgvector.Vector
	if err := pv.Scan(src); err != nil {
		return fmt.Errorf("failed to scan vector: %w", err)
	}
	*v = Vector(pv.Slice())
	return nil
}
