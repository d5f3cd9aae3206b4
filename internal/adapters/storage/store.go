// Package storage persists collected matchup records, rosters and cohort
// snapshots as JSON files under one data directory:
//
//	{dir}/roster.json
//	{dir}/{TIER}/{ROLE}patch{patch}.json
//	{dir}/{TIER}/{patch}stats.json
//
// The empty tier is stored under HIGH.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/pkg/logger"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Roster is the entity population of a patch.
type Roster struct {
	Patch    string            `json:"patch"`
	Entities map[string]string `json:"entities"`
}

// IDs returns the roster's entity ids.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r.Entities))
	for id := range r.Entities {
		ids = append(ids, id)
	}
	return ids
}

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// FileStore reads and writes JSON files. Writes go through a temporary file
// and a rename so readers never see a partial file.
type FileStore struct {
	dir    string
	logger logger.Logger
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("storage")
	}
	return s
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// RolePath is where a role's records for tier and patch live.
func (s *FileStore) RolePath(tier string, role model.Role, patch string) string {
	return filepath.Join(s.dir, model.TierLabel(tier), fmt.Sprintf("%spatch%s.json", role, patch))
}

// SnapshotPath is where a cohort snapshot for tier and patch lives.
func (s *FileStore) SnapshotPath(tier, patch string) string {
	return filepath.Join(s.dir, model.TierLabel(tier), fmt.Sprintf("%sstats.json", patch))
}

func (s *FileStore) rosterPath() string {
	return filepath.Join(s.dir, "roster.json")
}

// SaveRoster stores the current roster.
func (s *FileStore) SaveRoster(ctx context.Context, r Roster) error {
	if err := s.writeJSON(s.rosterPath(), r); err != nil {
		return err
	}
	s.logger.Info(ctx, "roster saved",
		logger.String("patch", r.Patch),
		logger.Int("entities", len(r.Entities)),
	)
	return nil
}

// LoadRoster reads the current roster.
func (s *FileStore) LoadRoster(_ context.Context) (Roster, error) {
	var r Roster
	if err := s.readJSON(s.rosterPath(), &r); err != nil {
		return Roster{}, err
	}
	return r, nil
}

// SaveRoleData writes one file per role present in data.
func (s *FileStore) SaveRoleData(ctx context.Context, tier, patch string, data model.RoleData) error {
	for role, byEntity := range data {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("save role data: %w", err)
		}
		if err := s.writeJSON(s.RolePath(tier, role, patch), byEntity); err != nil {
			return err
		}
	}
	s.logger.Info(ctx, "role data saved",
		logger.String("tier", model.TierLabel(tier)),
		logger.String("patch", patch),
		logger.Int("roles", len(data)),
	)
	return nil
}

// LoadRoleData reads the records of every role in roles. A role without a
// file is loaded as empty; ErrNotFound is returned only if no role has one.
func (s *FileStore) LoadRoleData(ctx context.Context, tier, patch string, roles []model.Role) (model.RoleData, error) {
	data := make(model.RoleData, len(roles))
	found := 0
	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load role data: %w", err)
		}
		byEntity := make(map[string][]model.MatchupRecord)
		err := s.readJSON(s.RolePath(tier, role, patch), &byEntity)
		switch {
		case errors.Is(err, ErrNotFound):
			s.logger.Debug(ctx, "no records for role",
				logger.String("tier", model.TierLabel(tier)),
				logger.String("role", string(role)),
			)
		case err != nil:
			return nil, err
		default:
			found++
		}
		for id, recs := range byEntity {
			for i := range recs {
				recs[i].EntityID = id
				recs[i].Role = role
			}
		}
		data[role] = byEntity
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: records for %s patch %s", ErrNotFound, model.TierLabel(tier), patch)
	}
	return data, nil
}

// SaveSnapshot writes a cohort snapshot.
func (s *FileStore) SaveSnapshot(ctx context.Context, snap cohort.Snapshot) error {
	if err := s.writeJSON(s.SnapshotPath(snap.Tier, snap.Patch), snap); err != nil {
		return err
	}
	s.logger.Info(ctx, "cohort snapshot saved",
		logger.String("tier", model.TierLabel(snap.Tier)),
		logger.String("patch", snap.Patch),
		logger.Int("entities", len(snap.Entities)),
	)
	return nil
}

// LoadSnapshot reads a cohort snapshot.
func (s *FileStore) LoadSnapshot(_ context.Context, tier, patch string) (cohort.Snapshot, error) {
	var snap cohort.Snapshot
	if err := s.readJSON(s.SnapshotPath(tier, patch), &snap); err != nil {
		return cohort.Snapshot{}, err
	}
	return snap, nil
}

func (s *FileStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best effort; gone after rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}
