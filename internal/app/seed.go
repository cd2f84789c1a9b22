package app

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hylla/metier/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedData decodes the built-in starter snapshot.
func SeedData() (domain.AppData, error) {
	var data domain.AppData
	dec := yaml.NewDecoder(bytes.NewReader(seedYAML))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return domain.AppData{}, fmt.Errorf("decode seed: %w", err)
	}
	snap := Snapshot{AppData: data}
	if err := snap.Validate(); err != nil {
		return domain.AppData{}, fmt.Errorf("seed: %w", err)
	}
	return data, nil
}

// SeedStore writes the starter snapshot into the entity store. It refuses to touch a store that
// already holds rows unless force is set, in which case seed rows overwrite same-id rows.
func (s *Service) SeedStore(ctx context.Context, force bool) (int, error) {
	seed, err := SeedData()
	if err != nil {
		return 0, err
	}
	existing, err := s.fetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("inspect store: %w", err)
	}
	if !force && !empty(existing) {
		return 0, ErrStoreNotEmpty
	}
	s.replace(existing, SourceStore)

	res, err := s.ImportSnapshot(ctx, Snapshot{Version: SnapshotVersion, AppData: seed})
	if err != nil {
		return 0, err
	}
	if !res.Persisted {
		return 0, res.Warning
	}
	return countEntities(seed), nil
}

func empty(d domain.AppData) bool {
	return countEntities(d) == 0
}

func countEntities(d domain.AppData) int {
	return len(d.Projects) + len(d.Departments) + len(d.Users) + len(d.TaskTypes) +
		len(d.Tasks) + len(d.ActivityLog) + len(d.TaskTemplates)
}
