package records

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/airsial/opshub/pkg/logger"
)

// Config controls store behavior. Dir is where the per-collection data
// files live; the import settings implement the configurable bulk-import
// policy.
type Config struct {
	Dir           string
	ImportMaxRows int
	ImportOnError string // abort or skip
	ImportRoles   []string
}

// collectionState is the in-memory copy of one collection plus its
// persistence path. The mutex serializes every read-modify-persist
// sequence so sequential ids can never collide.
type collectionState struct {
	mu      sync.RWMutex
	name    Collection
	path    string
	records []*Record
	nextID  int64
}

// Store owns the three collections and their durable files. Every mutation
// persists the full collection before it is visible to readers; a failed
// write leaves memory untouched.
type Store struct {
	cfg    Config
	logger *logger.Logger
	cols   map[Collection]*collectionState
}

// NewStore loads the three collections from cfg.Dir, creating the directory
// and starting empty where no file exists yet.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.ImportMaxRows <= 0 {
		cfg.ImportMaxRows = 10000
	}
	if cfg.ImportOnError == "" {
		cfg.ImportOnError = "abort"
	}
	if len(cfg.ImportRoles) == 0 {
		cfg.ImportRoles = []string{RoleAdministrator}
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.Dir, err)
	}

	s := &Store{
		cfg:    cfg,
		logger: log.Named("records-store"),
		cols:   make(map[Collection]*collectionState, 3),
	}

	for _, c := range Collections() {
		st, err := loadCollection(c, filepath.Join(cfg.Dir, string(c)+".json"))
		if err != nil {
			return nil, err
		}
		s.cols[c] = st
		s.logger.Info("Loaded collection",
			logger.String("collection", string(c)),
			logger.Int("records", len(st.records)),
			logger.Int64("next_id", st.nextID))
	}

	return s, nil
}

// loadCollection reads one data file, tolerating a missing file as an empty
// collection. The next sequential id is one past the highest seen.
func loadCollection(name Collection, path string) (*collectionState, error) {
	st := &collectionState{name: name, path: path, nextID: 1}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &st.records); err != nil {
		return nil, fmt.Errorf("failed to decode collection file %s: %w", path, err)
	}
	for _, r := range st.records {
		if r.ID >= st.nextID {
			st.nextID = r.ID + 1
		}
	}
	return st, nil
}

// Insert validates fields against the collection schema, stamps metadata,
// persists and returns the stored record. The record is durable before the
// call returns.
func (s *Store) Insert(c Collection, fields map[string]string, caller Caller) (*Record, error) {
	st, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	if caller.Name == "" {
		return nil, validationErrorf("actor identity is required")
	}
	for k := range fields {
		if !isSchemaField(c, k) {
			return nil, validationErrorf("field %q is not part of the %s schema", k, c)
		}
	}
	for _, f := range RequiredFields(c) {
		if strings.TrimSpace(fields[f]) == "" {
			return nil, validationErrorf("required field %q is empty", f)
		}
	}

	full := make(map[string]string, len(schemaFields[c]))
	for _, f := range schemaFields[c] {
		full[f] = fields[f]
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// Truncated to seconds so the RFC3339 form on disk round-trips exactly.
	rec := &Record{
		ID:        st.nextID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		CreatedBy: caller.Name,
		Fields:    full,
	}

	next := append(copyRecords(st.records), rec)
	if err := s.persistLocked(st, next); err != nil {
		return nil, err
	}
	st.records = next
	st.nextID++

	s.logger.Info("Record inserted",
		logger.String("collection", string(c)),
		logger.Int64("id", rec.ID),
		logger.String("actor", caller.Name))
	return rec.clone(), nil
}

// BulkImport parses a CSV source and inserts every row in source order.
// Either the whole parsed batch lands, or nothing does. Returns the number
// of records inserted.
func (s *Store) BulkImport(c Collection, src io.Reader, caller Caller) (int, error) {
	st, err := s.collection(c)
	if err != nil {
		return 0, err
	}
	if !roleAllowed(caller.Role, s.cfg.ImportRoles) {
		return 0, fmt.Errorf("%w: role %q may not bulk-import", ErrAccessDenied, caller.Role)
	}
	if caller.Name == "" {
		return 0, validationErrorf("actor identity is required")
	}

	rows, err := parseCSV(src, schemaFields[c], s.cfg.ImportOnError == "skip")
	if err != nil {
		return 0, err
	}
	if len(rows) > s.cfg.ImportMaxRows {
		return 0, validationErrorf("import of %d rows exceeds the limit of %d", len(rows), s.cfg.ImportMaxRows)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	next := copyRecords(st.records)
	for i, row := range rows {
		next = append(next, &Record{
			ID:          st.nextID + int64(i),
			CreatedAt:   now,
			CreatedBy:   caller.Name,
			UploadedVia: UploadedViaBulk,
			Fields:      row,
		})
	}
	if err := s.persistLocked(st, next); err != nil {
		return 0, err
	}
	st.records = next
	st.nextID += int64(len(rows))

	s.logger.Info("Bulk import committed",
		logger.String("collection", string(c)),
		logger.Int("inserted", len(rows)),
		logger.String("actor", caller.Name))
	return len(rows), nil
}

// Query returns records in insertion order, filtered when the filter is
// non-zero. The returned records are copies.
func (s *Store) Query(c Collection, f Filter) ([]*Record, error) {
	st, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	if f.Field != "" && !isSchemaField(c, f.Field) {
		return nil, validationErrorf("field %q is not part of the %s schema", f.Field, c)
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*Record, 0, len(st.records))
	for _, r := range st.records {
		if r.Matches(f) {
			out = append(out, r.clone())
		}
	}
	return out, nil
}

// Get returns a single record by id.
func (s *Store) Get(c Collection, id int64) (*Record, error) {
	st, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, r := range st.records {
		if r.ID == id {
			return r.clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, c, id)
}

// DeleteRange removes every record with lo <= id <= hi inclusive. Only
// administrators may delete. Returns how many records were removed.
func (s *Store) DeleteRange(c Collection, lo, hi int64, caller Caller) (int, error) {
	st, err := s.collection(c)
	if err != nil {
		return 0, err
	}
	if !strings.EqualFold(caller.Role, RoleAdministrator) {
		return 0, fmt.Errorf("%w: role %q may not delete records", ErrAccessDenied, caller.Role)
	}
	if lo > hi {
		return 0, validationErrorf("range bounds inverted: %d > %d", lo, hi)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	kept := make([]*Record, 0, len(st.records))
	removed := 0
	for _, r := range st.records {
		if r.ID >= lo && r.ID <= hi {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.persistLocked(st, kept); err != nil {
		return 0, err
	}
	st.records = kept

	s.logger.Info("Range delete committed",
		logger.String("collection", string(c)),
		logger.Int64("low", lo),
		logger.Int64("high", hi),
		logger.Int("removed", removed),
		logger.String("actor", caller.Name))
	return removed, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(c Collection) (int, error) {
	st, err := s.collection(c)
	if err != nil {
		return 0, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.records), nil
}

// Counts returns the record count of every collection.
func (s *Store) Counts() map[Collection]int {
	out := make(map[Collection]int, len(s.cols))
	for name, st := range s.cols {
		st.mu.RLock()
		out[name] = len(st.records)
		st.mu.RUnlock()
	}
	return out
}

func (s *Store) collection(c Collection) (*collectionState, error) {
	st, ok := s.cols[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return st, nil
}

// persistLocked writes the candidate record set durably. It must be called
// with the collection lock held, and the caller only swaps in the candidate
// after a nil return.
func (s *Store) persistLocked(st *collectionState, recs []*Record) error {
	if recs == nil {
		recs = []*Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}

	dir := filepath.Dir(st.path)
	tmp, err := os.CreateTemp(dir, "."+string(st.name)+"-*.tmp")
	if err != nil {
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}
	if err := os.Rename(tmpName, st.path); err != nil {
		return &PersistError{Collection: st.name, Path: st.path, Err: err}
	}
	return nil
}

func copyRecords(in []*Record) []*Record {
	out := make([]*Record, len(in))
	copy(out, in)
	return out
}

func roleAllowed(role string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(role, a) {
			return true
		}
	}
	return false
}
