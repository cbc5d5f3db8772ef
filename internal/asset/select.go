// Package asset chooses the release asset matching the current platform.
package asset

import (
	"fmt"
	"strings"

	"github.com/shelfterm/shelfterm/internal/platform"
	"github.com/shelfterm/shelfterm/internal/release"
)

// ErrNoAssetForPlatform is returned when no candidate asset scores >= 1
// against the platform pair.
type ErrNoAssetForPlatform struct {
	Pattern string
}

func (e *ErrNoAssetForPlatform) Error() string {
	return fmt.Sprintf("no release asset matches platform pattern %q", e.Pattern)
}

// Select scores each asset against the platform pair and returns the
// highest-scoring one. Scoring: +2 exact pattern match (e.g.
// "linux-x86_64"), +1 OS token present without the arch, 0 otherwise. Ties
// prefer the earliest-listed asset. Deterministic: the same (platform,
// assets) pair always yields the same result.
func Select(p platform.Pair, assets []release.Asset) (release.Asset, error) {
	pattern := p.AssetPattern()
	osToken := p.OSToken()

	bestScore := -1
	bestIdx := -1
	for i, a := range assets {
		score := score(a.Name, pattern, osToken)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx == -1 || bestScore < 1 {
		return release.Asset{}, &ErrNoAssetForPlatform{Pattern: pattern}
	}
	return assets[bestIdx], nil
}

func score(name, pattern, osToken string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, pattern):
		return 2
	case strings.Contains(lower, osToken):
		return 1
	default:
		return 0
	}
}
