package ledger

import (
	"github.com/sirekapreview/reviewer/internal/errors"
)

// Level is one row of the level table: counts at or above Minimum earn Label.
type Level struct {
	Minimum int    `yaml:"minimum" json:"minimum"`
	Label   string `yaml:"label" json:"label"`
}

// DefaultLevels is the compiled-in level table.
var DefaultLevels = []Level{
	{Minimum: 0, Label: "Beginner"},
	{Minimum: 20, Label: "Intermediate"},
	{Minimum: 50, Label: "Advanced"},
	{Minimum: 100, Label: "Expert"},
	{Minimum: 200, Label: "Master"},
	{Minimum: 500, Label: "Master+"},
	{Minimum: 1000, Label: "Master+"},
}

// ValidateLevels checks that the table is non-empty, starts at 0 and has
// strictly increasing minimums.
func ValidateLevels(levels []Level) error {
	if len(levels) == 0 {
		return errors.Newf("level table is empty").
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}
	if levels[0].Minimum != 0 {
		return errors.Newf("first level minimum must be 0, got %d", levels[0].Minimum).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Minimum <= levels[i-1].Minimum {
			return errors.Newf("level %d minimum %d does not exceed previous minimum %d",
				i, levels[i].Minimum, levels[i-1].Minimum).
				Category(errors.CategoryConfiguration).
				Component(componentName).
				Context("level_index", i).
				Build()
		}
	}
	return nil
}

// LevelIndex returns the index of the level containing count, using the
// half-open intervals [min_i, min_i+1). Negative counts map to level 0.
func LevelIndex(levels []Level, count int) int {
	idx := 0
	for i, l := range levels {
		if count >= l.Minimum {
			idx = i
			continue
		}
		break
	}
	return idx
}

// LevelFor returns the level containing count.
func LevelFor(levels []Level, count int) Level {
	return levels[LevelIndex(levels, count)]
}

// NextBoundaryFor returns the minimum of the level after the one containing
// count. In the last level there is no next minimum, so the last minimum is
// returned and ok is false.
func NextBoundaryFor(levels []Level, count int) (boundary int, ok bool) {
	idx := LevelIndex(levels, count)
	if idx+1 < len(levels) {
		return levels[idx+1].Minimum, true
	}
	return levels[idx].Minimum, false
}
