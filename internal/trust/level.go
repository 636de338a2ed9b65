package trust

// Level is the categorical trust level shown on dashboards and used for
// filtering.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ClassifyLevel maps a numeric trust score to its categorical level.
// The lower bound of each band is closed: 45 is medium, 70 is high.
func ClassifyLevel(score int) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 45:
		return LevelMedium
	default:
		return LevelLow
	}
}
