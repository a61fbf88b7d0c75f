// Package storage persists named query results. Each result is one JSON
// file in the store directory, written atomically and guarded by a
// SHA-256 checksum over its payload.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"CQPEval/internal/corpus"
	"CQPEval/internal/subcorpus"
)

// FormatVersion is the version of the result file layout.
const FormatVersion = 1

const resultExt = ".json"

var (
	ErrNotFound      = errors.New("no stored result")
	ErrInvalidName   = errors.New("invalid result name")
	ErrCorpusChanged = errors.New("corpus size differs from the stored result")
	ErrFormatVersion = errors.New("unsupported result format version")
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// record is the on-disk envelope of one result.
type record struct {
	FormatVersion int             `json:"format_version"`
	ID            uuid.UUID       `json:"id"`
	SavedAt       time.Time       `json:"saved_at"`
	Checksum      Checksum        `json:"checksum"`
	Result        json.RawMessage `json:"result"`
}

// Info describes a stored result without loading its ranges.
type Info struct {
	Name    string
	ID      uuid.UUID
	SavedAt time.Time
	Corpus  string
	Matches int
}

// ResultStore saves and loads named query results under one directory.
type ResultStore struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// NewResultStore opens the store at dir, creating the directory if needed.
func NewResultStore(dir string, logger *slog.Logger) (*ResultStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create result store %s: %w", dir, err)
	}
	return &ResultStore{dir: dir, logger: logger.With("component", "result_store")}, nil
}

// Dir returns the store directory.
func (rs *ResultStore) Dir() string { return rs.dir }

func (rs *ResultStore) path(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(rs.dir, name+resultExt), nil
}

// Save writes sc under its name, replacing an earlier result of that
// name. It returns the ID assigned to the saved copy.
func (rs *ResultStore) Save(sc *subcorpus.Subcorpus) (uuid.UUID, error) {
	if !sc.IsSub {
		return uuid.Nil, fmt.Errorf("%w: %q is a corpus, not a query result", ErrInvalidName, sc.Name)
	}
	path, err := rs.path(sc.Name)
	if err != nil {
		return uuid.Nil, err
	}
	if err := sc.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("save %s: %w", sc.Name, err)
	}

	payload, err := json.Marshal(sc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode %s: %w", sc.Name, err)
	}
	rec := record{
		FormatVersion: FormatVersion,
		ID:            uuid.New(),
		SavedAt:       time.Now().UTC(),
		Checksum:      ComputeChecksum(payload),
		Result:        payload,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode %s: %w", sc.Name, err)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := AtomicWriteFile(path, data); err != nil {
		return uuid.Nil, err
	}
	rs.logger.Info("saved query result", "name", sc.Name, "id", rec.ID, "matches", sc.Len())
	return rec.ID, nil
}

func (rs *ResultStore) read(name string) (*record, *subcorpus.Subcorpus, error) {
	path, err := rs.path(name)
	if err != nil {
		return nil, nil, err
	}
	rs.mu.Lock()
	data, err := os.ReadFile(path)
	rs.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if rec.FormatVersion != FormatVersion {
		return nil, nil, fmt.Errorf("%w: %d in %s", ErrFormatVersion, rec.FormatVersion, path)
	}
	if err := VerifyChecksum(rec.Result, rec.Checksum); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var sc subcorpus.Subcorpus
	if err := json.Unmarshal(rec.Result, &sc); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &rec, &sc, nil
}

// Load reads the result name and binds it to its corpus in reg. The
// corpus must still have the size it had when the result was saved.
func (rs *ResultStore) Load(name string, reg corpus.Registry) (*subcorpus.Subcorpus, error) {
	_, sc, err := rs.read(name)
	if err != nil {
		return nil, err
	}
	c, err := reg.Corpus(sc.CorpusName)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if c.Size() != sc.MotherSize {
		return nil, fmt.Errorf("%w: %s has %d tokens, result expects %d", ErrCorpusChanged, c.Name(), c.Size(), sc.MotherSize)
	}
	sc.Corpus = c
	sc.IsSub = true
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	rs.logger.Debug("loaded query result", "name", name, "matches", sc.Len())
	return sc, nil
}

// Stat describes the result name.
func (rs *ResultStore) Stat(name string) (Info, error) {
	rec, sc, err := rs.read(name)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: sc.Name, ID: rec.ID, SavedAt: rec.SavedAt, Corpus: sc.CorpusName, Matches: sc.Len()}, nil
}

// List returns the names of all stored results in lexical order.
func (rs *ResultStore) List() ([]string, error) {
	files, err := ListFiles(rs.dir, resultExt)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(f, resultExt)
		if validName.MatchString(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Delete removes the result name.
func (rs *ResultStore) Delete(name string) error {
	path, err := rs.path(name)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if err := FsyncDir(rs.dir); err != nil {
		return err
	}
	rs.logger.Info("deleted query result", "name", name)
	return nil
}
