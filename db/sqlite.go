package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Artifact kinds stored in the registry.
const (
	KindModel  = "model"
	KindSchema = "schema"
)

// ErrArtifactNotFound is returned by Get and Verify for a missing name and kind.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is one stored file: either a serialized model or a column schema.
type Artifact struct {
	Name      string
	Kind      string
	ModelType string
	Payload   []byte
	Checksum  string
	CreatedAt time.Time
}

// Registry keeps versioned model and schema artifacts in a SQLite file.
type Registry struct {
	db *sql.DB
}

// Open opens (or creates) the registry database at path.
func Open(path string) (*Registry, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS artifacts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name VARCHAR(100) NOT NULL,
        kind VARCHAR(20) NOT NULL,
        model_type VARCHAR(30),
        payload BLOB NOT NULL,
        checksum VARCHAR(64) NOT NULL,
        created_at DATETIME,
        UNIQUE(name, kind)
    );`
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create artifacts table: %w", err)
	}
	return &Registry{db: database}, nil
}

// Checksum is the hex sha256 of payload.
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Put stores an artifact, replacing any earlier one with the same name and kind.
func (r *Registry) Put(ctx context.Context, a Artifact) (Artifact, error) {
	return put(ctx, r.db, a)
}

// PutPair stores a model and its schema in one transaction: either both
// replace the stored pair or neither does.
func (r *Registry) PutPair(ctx context.Context, model, schema Artifact) (Artifact, Artifact, error) {
	if model.Kind != KindModel || schema.Kind != KindSchema {
		return Artifact{}, Artifact{}, fmt.Errorf("pair needs a %s and a %s, got %q and %q", KindModel, KindSchema, model.Kind, schema.Kind)
	}
	if model.Name != schema.Name {
		return Artifact{}, Artifact{}, fmt.Errorf("pair names differ: %q and %q", model.Name, schema.Name)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Artifact{}, Artifact{}, err
	}
	defer tx.Rollback()

	if model, err = put(ctx, tx, model); err != nil {
		return Artifact{}, Artifact{}, err
	}
	if schema, err = put(ctx, tx, schema); err != nil {
		return Artifact{}, Artifact{}, err
	}
	if err := tx.Commit(); err != nil {
		return Artifact{}, Artifact{}, fmt.Errorf("commit %s: %w", model.Name, err)
	}
	return model, schema, nil
}

func put(ctx context.Context, ex execer, a Artifact) (Artifact, error) {
	if a.Name == "" {
		return Artifact{}, errors.New("artifact name is required")
	}
	if a.Kind != KindModel && a.Kind != KindSchema {
		return Artifact{}, fmt.Errorf("unknown artifact kind %q", a.Kind)
	}
	if len(a.Payload) == 0 {
		return Artifact{}, errors.New("artifact payload is empty")
	}
	a.Checksum = Checksum(a.Payload)
	a.CreatedAt = time.Now().UTC()

	_, err := ex.ExecContext(ctx, `
        INSERT OR REPLACE INTO artifacts (name, kind, model_type, payload, checksum, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, a.Kind, a.ModelType, a.Payload, a.Checksum, a.CreatedAt)
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s/%s: %w", a.Name, a.Kind, err)
	}
	return a, nil
}

// Get returns the artifact stored under name and kind.
func (r *Registry) Get(ctx context.Context, name, kind string) (Artifact, error) {
	var a Artifact
	var modelType sql.NullString
	err := r.db.QueryRowContext(ctx, `
        SELECT name, kind, model_type, payload, checksum, created_at
        FROM artifacts WHERE name = ? AND kind = ?`, name, kind).
		Scan(&a.Name, &a.Kind, &modelType, &a.Payload, &a.Checksum, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("%s/%s: %w", name, kind, ErrArtifactNotFound)
	}
	if err != nil {
		return Artifact{}, err
	}
	a.ModelType = modelType.String
	return a, nil
}

// List returns every stored artifact without payloads, ordered by name and kind.
func (r *Registry) List(ctx context.Context) ([]Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT name, kind, model_type, checksum, created_at
        FROM artifacts ORDER BY name, kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var modelType sql.NullString
		if err := rows.Scan(&a.Name, &a.Kind, &modelType, &a.Checksum, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ModelType = modelType.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// Verify recomputes the checksum of a stored artifact.
func (r *Registry) Verify(ctx context.Context, name, kind string) error {
	a, err := r.Get(ctx, name, kind)
	if err != nil {
		return err
	}
	if got := Checksum(a.Payload); got != a.Checksum {
		return fmt.Errorf("%s/%s checksum mismatch: stored %s, computed %s", name, kind, a.Checksum, got)
	}
	return nil
}

// Close releases the database. It is safe on a nil registry.
func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
