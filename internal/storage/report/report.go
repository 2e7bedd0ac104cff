// internal/storage/report/report.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/storage/archive"
)

const (
	prefix = "reports"
	ext    = ".json"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,127}$`)

// Store persists backtest results as JSON documents in an archive.
type Store struct {
	storage archive.Storage
}

// NewStore creates a report store over the given archive backend.
func NewStore(storage archive.Storage) *Store {
	return &Store{storage: storage}
}

func key(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", core.WrapError(core.ErrInvalidParameter, fmt.Errorf("invalid report id %q", id))
	}
	return path.Join(prefix, id+ext), nil
}

// Save writes result under id, replacing any earlier report with that id.
func (s *Store) Save(ctx context.Context, id string, result *backtest.Result) error {
	k, err := key(id)
	if err != nil {
		return err
	}
	if result == nil {
		return core.WrapError(core.ErrInvalidParameter, errors.New("nil result"))
	}

	stored := *result
	stored.ID = id
	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("encoding report %s: %w", id, err))
	}
	if err := s.storage.Write(ctx, k, data); err != nil {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing report %s: %w", id, err))
	}
	return nil
}

// Load reads the report stored under id.
func (s *Store) Load(ctx context.Context, id string) (*backtest.Result, error) {
	k, err := key(id)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Read(ctx, k)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, core.WrapError(core.ErrReportNotFound, fmt.Errorf("report %s", id))
		}
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("reading report %s: %w", id, err))
	}

	var result backtest.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("decoding report %s: %w", id, err))
	}
	return &result, nil
}

// List returns the ids of all stored reports, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	paths, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}

	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		if !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the report stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	k, err := key(id)
	if err != nil {
		return err
	}

	exists, err := s.storage.Exists(ctx, k)
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	if !exists {
		return core.WrapError(core.ErrReportNotFound, fmt.Errorf("report %s", id))
	}
	if err := s.storage.Delete(ctx, k); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	return nil
}
