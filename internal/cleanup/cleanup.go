// Package cleanup manages the per-session run directories under
// .panelsim/runs: creating them and pruning old ones.
package cleanup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunLayout is the format used for run directory names.
const RunLayout = "20060102-150405"

// run is one timestamp-named directory.
type run struct {
	name string
	at   time.Time
}

// NewRunDir creates a fresh run directory named after now. If a directory
// for that second already exists the next free second is used.
func NewRunDir(runsDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return "", fmt.Errorf("creating runs directory: %w", err)
	}
	for i := 0; i < 60; i++ {
		path := filepath.Join(runsDir, now.Add(time.Duration(i)*time.Second).Format(RunLayout))
		err := os.Mkdir(path, 0755)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
	}
	return "", fmt.Errorf("no free run directory near %s", now.Format(RunLayout))
}

// listRuns returns the timestamp-named directories in runsDir, oldest
// first. A missing runsDir yields no runs.
func listRuns(runsDir string) ([]run, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading runs directory: %w", err)
	}

	var runs []run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Skip directories that don't match the timestamp format.
		t, parseErr := time.ParseInLocation(RunLayout, entry.Name(), time.Local)
		if parseErr != nil {
			continue
		}
		runs = append(runs, run{name: entry.Name(), at: t})
	}

	// Timestamp names sort chronologically.
	sort.Slice(runs, func(i, j int) bool { return runs[i].name < runs[j].name })
	return runs, nil
}

func remove(runsDir string, runs []run, dryRun bool) ([]string, error) {
	var pruned []string
	for _, r := range runs {
		if !dryRun {
			if err := os.RemoveAll(filepath.Join(runsDir, r.name)); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", r.name, err)
			}
		}
		pruned = append(pruned, r.name)
	}
	return pruned, nil
}

// PruneByAge removes run directories older than maxAgeDays relative to now.
// A non-positive maxAgeDays disables pruning. If dryRun is true nothing is
// deleted. Returns the names of the pruned directories.
func PruneByAge(runsDir string, maxAgeDays int, now time.Time, dryRun bool) ([]string, error) {
	if maxAgeDays <= 0 {
		return nil, nil
	}
	runs, err := listRuns(runsDir)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, -maxAgeDays)
	var old []run
	for _, r := range runs {
		if r.at.Before(cutoff) {
			old = append(old, r)
		}
	}
	return remove(runsDir, old, dryRun)
}

// PruneKeepRecent removes all run directories except the most recent keep.
// If dryRun is true nothing is deleted. Returns the names of the pruned
// directories.
func PruneKeepRecent(runsDir string, keep int, dryRun bool) ([]string, error) {
	runs, err := listRuns(runsDir)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(runs) <= keep {
		return nil, nil
	}
	return remove(runsDir, runs[:len(runs)-keep], dryRun)
}
