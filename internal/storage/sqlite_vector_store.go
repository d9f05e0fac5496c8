package storage

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"campusquery/internal/models"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteVectorStore implements a SQLite-based vector storage system using
// sqlite-vec. Chunk metadata lives in a regular table; embeddings live in a
// vec0 virtual table created on first insert, when the dimension is known.
type SQLiteVectorStore struct {
	db              *sql.DB
	embeddingLength int
}

// NewSQLiteVectorStore opens (or creates) the store at the given path.
func NewSQLiteVectorStore(path string) (*SQLiteVectorStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteVectorStore{db: db}

	if err := store.initDB(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initDB creates the metadata tables. The vec_chunks virtual table is
// created dynamically on first insert, when the embedding dimension is
// known.
func (s *SQLiteVectorStore) initDB() error {
	metadataQuery := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		content TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(metadataQuery); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	manifestQuery := `
	CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(manifestQuery); err != nil {
		return fmt.Errorf("failed to create index_meta table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteVectorStore) Close() error {
	return s.db.Close()
}

// serializeFloat32Vector converts a float32 slice to the byte format expected by sqlite-vec
func serializeFloat32Vector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return buf
}

// AddChunk stores a chunk with its embedding.
func (s *SQLiteVectorStore) AddChunk(chunk *models.Chunk) error {
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}

	if err := s.ensureVecTableExists(len(chunk.Embedding)); err != nil {
		return fmt.Errorf("failed to ensure vec table exists: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metadataQuery := `INSERT INTO chunks (id, filename, path, chunk_index, total_chunks, content) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(metadataQuery, chunk.ID.String(), chunk.Filename, chunk.Path, chunk.Index, chunk.Total, chunk.Content); err != nil {
		return fmt.Errorf("failed to insert chunk metadata: %w", err)
	}

	embeddingBytes := serializeFloat32Vector(chunk.Embedding)
	vecQuery := `INSERT INTO vec_chunks (id, embedding) VALUES (?, ?)`
	if _, err := tx.Exec(vecQuery, chunk.ID.String(), embeddingBytes); err != nil {
		return fmt.Errorf("failed to insert chunk vector: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ensureVecTableExists creates the vec_chunks table if it doesn't exist.
func (s *SQLiteVectorStore) ensureVecTableExists(embeddingLen int) error {
	if embeddingLen == 0 {
		return fmt.Errorf("chunk has no embedding")
	}

	exists, err := s.vecTableExists()
	if err != nil {
		return err
	}
	if exists {
		if s.embeddingLength != 0 && s.embeddingLength != embeddingLen {
			return fmt.Errorf("cannot change embedding length from %d to %d with existing chunks", s.embeddingLength, embeddingLen)
		}
		s.embeddingLength = embeddingLen
		return nil
	}

	s.embeddingLength = embeddingLen
	vecQuery := fmt.Sprintf(`
		CREATE VIRTUAL TABLE vec_chunks USING vec0(
			id TEXT PRIMARY KEY,
			embedding FLOAT[%d]
		)
	`, s.embeddingLength)

	if _, err := s.db.Exec(vecQuery); err != nil {
		return fmt.Errorf("failed to create vec_chunks table: %w", err)
	}

	return nil
}

func (s *SQLiteVectorStore) vecTableExists() (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='vec_chunks'").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check vec_chunks existence: %w", err)
	}
	return count > 0, nil
}

// Search performs KNN vector search using sqlite-vec and returns matches
// ranked by decreasing similarity. The similarity score is derived from the
// real distance (1/(1+d), monotone decreasing in d) rather than synthesised
// from rank. An uninitialized index yields no matches.
func (s *SQLiteVectorStore) Search(embedding []float32, topK int) ([]models.RetrievalMatch, error) {
	exists, err := s.vecTableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	embeddingBytes := serializeFloat32Vector(embedding)

	// sqlite-vec requires the k parameter inside the MATCH expression.
	query := `
		SELECT
			c.id,
			c.filename,
			c.path,
			c.chunk_index,
			c.total_chunks,
			c.content,
			v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`

	rows, err := s.db.Query(query, embeddingBytes, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to perform vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []models.RetrievalMatch
	for rows.Next() {
		var id, filename, path, content string
		var chunkIndex, totalChunks int
		var distance float64

		if err := rows.Scan(&id, &filename, &path, &chunkIndex, &totalChunks, &content, &distance); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		chunkID, err := uuid.Parse(id)
		if err != nil {
			log.Printf("Error parsing UUID %s: %v", id, err)
			continue
		}

		matches = append(matches, models.RetrievalMatch{
			Chunk: models.Chunk{
				ID:       chunkID,
				Filename: filename,
				Path:     path,
				Index:    chunkIndex,
				Total:    totalChunks,
				Content:  content,
				// Embedding deliberately not fetched to save memory.
			},
			Score: 1.0 / (1.0 + distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return matches, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteVectorStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Manifest returns the stored document-set hash, empty if none.
func (s *SQLiteVectorStore) Manifest() (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM index_meta WHERE key = 'manifest'").Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read manifest: %w", err)
	}
	return value, nil
}

// SetManifest stores the document-set hash the index was built from.
func (s *SQLiteVectorStore) SetManifest(hash string) error {
	query := `
		INSERT INTO index_meta (key, value) VALUES ('manifest', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.Exec(query, hash); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}
	return nil
}

// Clear removes all chunks, vectors and the manifest, leaving an empty
// store ready for a rebuild.
func (s *SQLiteVectorStore) Clear() error {
	exists, err := s.vecTableExists()
	if err != nil {
		return err
	}
	if exists {
		if _, err := s.db.Exec("DROP TABLE vec_chunks"); err != nil {
			return fmt.Errorf("failed to drop vec_chunks: %w", err)
		}
	}
	if _, err := s.db.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("failed to clear index metadata: %w", err)
	}
	s.embeddingLength = 0
	return nil
}
