package tasks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/songdl/internal/shared"
)

// SweepTemp removes artifacts left in the staging directory of dir by interrupted downloads and
// returns how many were removed. Nothing outside the staging directory is touched, and a missing
// directory is not an error.
func SweepTemp(dir string) (int, error) {
	staging := shared.StagingPath(dir)
	entries, err := os.ReadDir(staging)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", shared.ErrFilesystem, staging, err)
	}

	removed := 0
	var firstErr error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(staging, e.Name())); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: remove %s: %v", shared.ErrFilesystem, e.Name(), err)
			}
			continue
		}
		removed++
	}

	if firstErr == nil {
		os.Remove(staging)
	}
	return removed, firstErr
}
