package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/amanmcp/mnemo/internal/merrors"
	"github.com/amanmcp/mnemo/internal/model"
)

// MemoryStore is the authoritative SQLite-backed store of memory records
// (C4). VectorIndex and TextIndex are rebuildable projections over it.
type MemoryStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

const memorySchema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	title TEXT NOT NULL,
	memory_type TEXT NOT NULL,
	priority TEXT NOT NULL,
	source TEXT,
	tags TEXT NOT NULL DEFAULT '[]',
	concepts TEXT NOT NULL DEFAULT '[]',
	files TEXT NOT NULL DEFAULT '[]',
	embedding BLOB,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	accessed_at TEXT NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_priority ON memories(priority);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_accessed_at ON memories(accessed_at);
`

// NewMemoryStore opens (creating if necessary) the SQLite database at path.
// An empty path opens an in-memory database, used for tests.
func NewMemoryStore(path string) (*MemoryStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, merrors.Storage("create memory store directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, merrors.Storage("open memory store", err)
	}

	// A single connection serializes every query from this process; WAL
	// mode plus a busy timeout let another connection to the same file read
	// while this one writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, merrors.Storage("set memory store pragma", err)
		}
	}

	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, merrors.Storage("initialize memory store schema", err)
	}

	return &MemoryStore{db: db, path: path}, nil
}

// Insert writes a new memory record. It fails if the id already exists —
// callers that want to update an existing memory must Delete then Insert,
// matching the hybrid layer's update-as-delete-then-insert policy.
func (s *MemoryStore) Insert(ctx context.Context, m *model.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tagsJSON, err := json.Marshal(orEmpty(m.Metadata.Tags))
	if err != nil {
		return merrors.Invalid("marshal tags")
	}
	conceptsJSON, err := json.Marshal(orEmpty(m.Metadata.Concepts))
	if err != nil {
		return merrors.Invalid("marshal concepts")
	}
	filesJSON, err := json.Marshal(orEmpty(m.Metadata.Files))
	if err != nil {
		return merrors.Invalid("marshal files")
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE id = ?`, m.ID).Scan(&exists); err == nil {
		return merrors.Storage("insert memory", fmt.Errorf("id %q already exists", m.ID)).WithDetail("id", m.ID)
	} else if err != sql.ErrNoRows {
		return merrors.Storage("check memory existence", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, title, memory_type, priority, source, tags, concepts, files, embedding, created_at, updated_at, accessed_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, m.Title, string(m.Metadata.MemoryType), string(m.Metadata.Priority),
		nullable(m.Metadata.Source), string(tagsJSON), string(conceptsJSON), string(filesJSON),
		encodeEmbedding(m.Embedding),
		m.CreatedAt.UTC().Format(time.RFC3339Nano), m.UpdatedAt.UTC().Format(time.RFC3339Nano),
		m.AccessedAt.UTC().Format(time.RFC3339Nano), m.AccessCount,
	)
	if err != nil {
		return merrors.Storage("insert memory", err)
	}
	return nil
}

// Get fetches a memory by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, title, memory_type, priority, source, tags, concepts, files, embedding, created_at, updated_at, accessed_at, access_count
		FROM memories WHERE id = ?`, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, merrors.NotFound(id)
	}
	if err != nil {
		return nil, merrors.Storage("get memory", err)
	}
	return m, nil
}

// GetMany fetches memories by id, skipping ids that don't exist, preserving
// the order of ids.
func (s *MemoryStore) GetMany(ctx context.Context, ids []string) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, content, title, memory_type, priority, source, tags, concepts, files, embedding, created_at, updated_at, accessed_at, access_count
		FROM memories WHERE id IN (%s)`, string(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, merrors.Storage("get many memories", err)
	}
	defer rows.Close()

	byID := make(map[string]*model.Memory, len(ids))
	for rows.Next() {
		m, err := scanMemoryRows(rows)
		if err != nil {
			return nil, merrors.Storage("scan memory row", err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, merrors.Storage("iterate memory rows", err)
	}

	ordered := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

// AllEmbeddings returns the id and embedding of every memory that has one,
// used to rebuild the vector index from scratch.
func (s *MemoryStore) AllEmbeddings(ctx context.Context) ([]struct {
	ID     string
	Vector []float32
}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, merrors.Storage("query embeddings", err)
	}
	defer rows.Close()

	var out []struct {
		ID     string
		Vector []float32
	}
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, merrors.Storage("scan embedding row", err)
		}
		out = append(out, struct {
			ID     string
			Vector []float32
		}{ID: id, Vector: decodeEmbedding(blob)})
	}
	return out, rows.Err()
}

// AllTextData returns the id, title, and content of every memory, used to
// rebuild the text index from scratch.
func (s *MemoryStore) AllTextData(ctx context.Context) ([]struct {
	ID      string
	Title   string
	Content string
}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, title, content FROM memories`)
	if err != nil {
		return nil, merrors.Storage("query text data", err)
	}
	defer rows.Close()

	var out []struct {
		ID      string
		Title   string
		Content string
	}
	for rows.Next() {
		var id, title, content string
		if err := rows.Scan(&id, &title, &content); err != nil {
			return nil, merrors.Storage("scan text row", err)
		}
		out = append(out, struct {
			ID      string
			Title   string
			Content string
		}{ID: id, Title: title, Content: content})
	}
	return out, rows.Err()
}

// Touch records an access: bumps access_count and sets accessed_at to now.
func (s *MemoryStore) Touch(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, accessed_at = ? WHERE id = ?`,
		now.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return merrors.Storage("touch memory", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return merrors.Storage("touch memory rows affected", err)
	}
	if n == 0 {
		return merrors.NotFound(id)
	}
	return nil
}

// Delete removes a memory record.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return merrors.Storage("delete memory", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return merrors.Storage("delete memory rows affected", err)
	}
	if n == 0 {
		return merrors.NotFound(id)
	}
	return nil
}

// Count returns the total number of stored memories.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, merrors.Storage("count memories", err)
	}
	return n, nil
}

// AllIDs returns every memory id, used by the consistency checker.
func (s *MemoryStore) AllIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM memories`)
	if err != nil {
		return nil, merrors.Storage("query memory ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, merrors.Storage("scan memory id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying database handle.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row *sql.Row) (*model.Memory, error) {
	return scanMemoryRows(row)
}

func scanMemoryRows(row rowScanner) (*model.Memory, error) {
	var (
		m                                          model.Memory
		memType, priority                          string
		source                                     sql.NullString
		tagsJSON, conceptsJSON, filesJSON           string
		embedding                                   []byte
		createdAt, updatedAt, accessedAt            string
	)

	if err := row.Scan(&m.ID, &m.Content, &m.Title, &memType, &priority, &source,
		&tagsJSON, &conceptsJSON, &filesJSON, &embedding,
		&createdAt, &updatedAt, &accessedAt, &m.AccessCount); err != nil {
		return nil, err
	}

	m.Metadata.MemoryType = model.ParseMemoryType(memType)
	m.Metadata.Priority = model.ParsePriority(priority)
	if source.Valid {
		m.Metadata.Source = source.String
	}
	_ = json.Unmarshal([]byte(tagsJSON), &m.Metadata.Tags)
	_ = json.Unmarshal([]byte(conceptsJSON), &m.Metadata.Concepts)
	_ = json.Unmarshal([]byte(filesJSON), &m.Metadata.Files)
	m.Embedding = decodeEmbedding(embedding)

	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	m.AccessedAt, _ = time.Parse(time.RFC3339Nano, accessedAt)

	return &m, nil
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
