package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/readmigo/reader/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPositions = []byte("positions")
)

const positionPrefix = "book:"

// PositionStore implements domain.PositionStore using BoltDB.
type PositionStore struct {
	db     *bolt.DB
	logger *slog.Logger
	mu     sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore opens (or creates) the position database under baseDir.
// Positions from different content servers live in separate databases keyed by
// a hash of namespace. An empty baseDir keeps everything in memory.
func NewPositionStore(baseDir, namespace string, logger *slog.Logger) (*PositionStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseDir == "" {
		// Memory-only mode (no persistence)
		return &PositionStore{logger: logger, cache: make(map[string][]byte)}, nil
	}

	dir := baseDir
	if namespace != "" {
		dir = filepath.Join(baseDir, hashNamespace(namespace))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "positions.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPositions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("opened position store", "path", dbPath)
	return &PositionStore{db: db, logger: logger, cache: make(map[string][]byte)}, nil
}

func hashNamespace(namespace string) string {
	normalized := strings.TrimRight(strings.ToLower(namespace), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *PositionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Positions ===

// GetPosition returns the saved position of a book
func (s *PositionStore) GetPosition(bookID string) (domain.Position, bool) {
	var pos domain.Position
	ok := s.get(positionPrefix+bookID, &pos)
	return pos, ok
}

// SavePosition stores pos, stamping UpdatedAt when the caller left it zero
func (s *PositionStore) SavePosition(pos domain.Position) error {
	if pos.BookID == "" {
		return fmt.Errorf("save position: empty book id")
	}
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now()
	}
	return s.set(positionPrefix+pos.BookID, pos)
}

func (s *PositionStore) DeletePosition(bookID string) {
	s.delete(positionPrefix + bookID)
}

// ListPositions returns every saved position, most recently read first
func (s *PositionStore) ListPositions() ([]domain.Position, error) {
	raw, err := s.all()
	if err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(raw))
	for key, data := range raw {
		var pos domain.Position
		if err := json.Unmarshal(data, &pos); err != nil {
			s.logger.Warn("skipping unreadable position", "key", key, "error", err)
			continue
		}
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].UpdatedAt.Equal(positions[j].UpdatedAt) {
			return positions[i].BookID < positions[j].BookID
		}
		return positions[i].UpdatedAt.After(positions[j].UpdatedAt)
	})
	return positions, nil
}

// Clear removes every saved position
func (s *PositionStore) Clear() error {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPositions)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Generic helpers ===

func (s *PositionStore) get(key string, dest interface{}) bool {
	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPositions)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("position read failed", "key", key, "error", err)
		return false
	}
	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *PositionStore) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPositions).Put([]byte(key), data)
	})
}

func (s *PositionStore) delete(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPositions)
		if b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("position delete failed", "key", key, "error", err)
	}
}

// all returns a copy of every stored value keyed by its bucket key
func (s *PositionStore) all() (map[string][]byte, error) {
	out := make(map[string][]byte)

	if s.db == nil {
		s.mu.RLock()
		for k, v := range s.cache {
			if strings.HasPrefix(k, positionPrefix) {
				out[k] = v
			}
		}
		s.mu.RUnlock()
		return out, nil
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPositions)
		if b == nil {
			return nil
		}
		prefix := []byte(positionPrefix)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), positionPrefix); k, v = c.Next() {
			data := make([]byte, len(v))
			copy(data, v)
			out[string(k)] = data
		}
		return nil
	})
	return out, err
}
