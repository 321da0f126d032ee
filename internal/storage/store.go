package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	historyBucket   = []byte("history")
	sessionBucket   = []byte("session")
	checksumsBucket = []byte("checksums")

	sessionKey = []byte("current")
)

const DefaultHistorySize = 50

type Options struct {
	Timeout     time.Duration
	HistorySize int
}

type Store struct {
	db          *bolt.DB
	historySize int
	now         func() time.Time
}

func NewStore(dbPath string, opts Options) (*Store, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{historyBucket, sessionBucket, checksumsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	size := opts.HistorySize
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Store{db: db, historySize: size, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func historyKey(query string) []byte {
	return []byte(strings.ToLower(query))
}

// RecordQuery remembers query, bumping its use count, and evicts the least
// recently used entries beyond the history size.
func (s *Store) RecordQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		key := historyKey(query)

		entry := QueryEntry{Query: query}
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}
			entry.Query = query
		}
		entry.Count++
		entry.LastUsed = s.now()

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
		return trimHistory(b, s.historySize)
	})
}

func trimHistory(b *bolt.Bucket, limit int) error {
	entries, err := readHistory(b)
	if err != nil {
		return err
	}
	if len(entries) <= limit {
		return nil
	}
	for _, e := range entries[limit:] {
		if err := b.Delete(historyKey(e.Query)); err != nil {
			return err
		}
	}
	return nil
}

// readHistory returns every entry, most recently used first.
func readHistory(b *bolt.Bucket) ([]QueryEntry, error) {
	var entries []QueryEntry
	err := b.ForEach(func(_ []byte, v []byte) error {
		var e QueryEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastUsed.After(entries[j].LastUsed)
	})
	return entries, err
}

// RecentQueries returns up to limit queries, most recent first. A limit
// of zero returns all of them.
func (s *Store) RecentQueries(limit int) ([]QueryEntry, error) {
	var entries []QueryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		entries, err = readHistory(tx.Bucket(historyBucket))
		return err
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, err
}

func (s *Store) ClearHistory() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(historyBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(historyBucket)
		return err
	})
}

func (s *Store) SaveSession(session Session) error {
	session.UpdatedAt = s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return tx.Bucket(sessionBucket).Put(sessionKey, data)
	})
}

// LoadSession returns the saved session, or a zero Session when none was
// saved yet.
func (s *Store) LoadSession() (Session, error) {
	var session Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get(sessionKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &session)
	})
	return session, err
}

// Checksum returns the stored content hash of a document.
func (s *Store) Checksum(id string) (uint64, bool, error) {
	var sum uint64
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(checksumsBucket).Get([]byte(id))
		if len(data) != 8 {
			return nil
		}
		sum = binary.BigEndian.Uint64(data)
		ok = true
		return nil
	})
	return sum, ok, err
}

func (s *Store) PutChecksum(id string, sum uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], sum)
		return tx.Bucket(checksumsBucket).Put([]byte(id), buf[:])
	})
}

func (s *Store) DeleteChecksum(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checksumsBucket).Delete([]byte(id))
	})
}
