package vaultfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// RecentFile is the name of the recent vaults list inside the vault directory.
const RecentFile = "recent.json"

// MaxRecent is how many vaults the recent list keeps.
const MaxRecent = 5

// RecentVault is one entry of the recent vaults list.
type RecentVault struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Recent returns up to MaxRecent recently opened vaults, newest first. A
// missing list is empty.
func (m *Manager) Recent() ([]RecentVault, error) {
	dir, err := m.Dir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, RecentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading recent vaults: %w", common.ErrStoreUnavailable, err)
	}

	var list []RecentVault
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: recent vaults: %w", common.ErrCorruptConfiguration, err)
	}

	sortRecent(list)
	if len(list) > MaxRecent {
		list = list[:MaxRecent]
	}
	return list, nil
}

// remember moves path to the top of the recent list. Failures are logged and
// otherwise ignored: the list is a convenience.
func (m *Manager) remember(ctx context.Context, path string) {
	if err := m.addRecent(path); err != nil {
		m.logger.Warn(ctx, "could not update recent vaults", "error", err)
	}
}

func (m *Manager) addRecent(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	list, err := m.Recent()
	if errors.Is(err, common.ErrCorruptConfiguration) {
		list = nil
	} else if err != nil {
		return err
	}

	updated := make([]RecentVault, 0, MaxRecent)
	updated = append(updated, RecentVault{
		Path:         path,
		Name:         filepath.Base(path),
		LastAccessed: m.now().UTC(),
	})
	for _, v := range list {
		if v.Path != path {
			updated = append(updated, v)
		}
	}
	if len(updated) > MaxRecent {
		updated = updated[:MaxRecent]
	}

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return err
	}

	dir, err := m.Dir()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, RecentFile), data, 0o600)
}

func sortRecent(list []RecentVault) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastAccessed.After(list[j].LastAccessed)
	})
}
