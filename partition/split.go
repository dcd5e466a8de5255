package partition

import (
	tterrors "github.com/tth-analysis/tthrun/errors"
)

// Split cuts the indices 1..totalFiles into contiguous groups of at most
// maxPerGroup files. Boundaries are laid at a maxPerGroup stride starting at
// 1, closed by a totalFiles+1 sentinel, so only the last group may be short.
// An empty sample yields no group.
func Split(totalFiles, maxPerGroup int) (Ranges, error) {
	if maxPerGroup <= 0 {
		return nil, tterrors.NewInvalidArgument("max_per_group", "must be positive, got %d", maxPerGroup)
	}
	if totalFiles < 0 {
		return nil, tterrors.NewInvalidArgument("total_files", "cannot be negative, got %d", totalFiles)
	}
	if totalFiles == 0 {
		return nil, nil
	}

	var limits []int
	for start := 1; start <= totalFiles; start += maxPerGroup {
		limits = append(limits, start)
	}
	limits = append(limits, totalFiles+1)

	out := make(Ranges, 0, len(limits)-1)
	for i := 0; i < len(limits)-1; i++ {
		out = append(out, NewRange(limits[i], limits[i+1]))
	}
	return out, nil
}

// Count is the number of groups Split produces, without building them.
func Count(totalFiles, maxPerGroup int) int {
	if totalFiles <= 0 || maxPerGroup <= 0 {
		return 0
	}
	return (totalFiles + maxPerGroup - 1) / maxPerGroup
}
