package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"datastory/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ErrBlobNotFound is returned by a Backend that holds no document yet.
var ErrBlobNotFound = errors.New("content document not found")

// Backend persists the whole content document as one blob.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*PostgresBackend)(nil)
	_ Backend = (*RedisBackend)(nil)
)

type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read content file %s: %v", b.Path, err)
		return nil, err
	}
	return data, nil
}

// Write replaces the file through a temp file in the same directory so readers
// never see a half written document.
func (b *FileBackend) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Sugar.Errorf("Failed to create content dir %s: %v", dir, err)
		return err
	}
	tmp, err := os.CreateTemp(dir, ".content-*.json")
	if err != nil {
		logger.Sugar.Errorf("Failed to create temp file in %s: %v", dir, err)
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		logger.Sugar.Errorf("Failed to write content file: %v", err)
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		logger.Sugar.Errorf("Failed to replace content file %s: %v", b.Path, err)
		return err
	}
	return nil
}

const documentID = "generated_content"

type PostgresBackend struct {
	DB *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{DB: db}
}

// EnsureSchema creates the single-row table. The payload is TEXT, not JSONB:
// jsonb reorders object keys and story and slot order live in the key order.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS story_documents (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		logger.Sugar.Errorf("Failed to create story_documents table: %v", err)
	}
	return err
}

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := b.DB.QueryRowContext(ctx, "SELECT payload FROM story_documents WHERE id = $1", documentID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read story document: %v", err)
		return nil, err
	}
	return payload, nil
}

func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.DB.ExecContext(ctx, `INSERT INTO story_documents (id, payload, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, documentID, string(data))
	if err != nil {
		logger.Sugar.Errorf("Failed to write story document: %v", err)
	}
	return err
}

type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = "datastory:" + documentID
	}
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err == redis.Nil {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.key, err)
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", b.key, err)
	}
	return nil
}
