package building

import "github.com/iwvelando/topgirl-optimizer/pkg/constants"

// Progression is the level state a building moves to on level up.
type Progression struct {
	CurrLevel       int     `json:"curr_level"`
	CurrCoefficient float64 `json:"curr_coefficient"`
	NextCoefficient float64 `json:"next_coefficient"`
}

// LevelUp computes the next level state of b: the level increases by one,
// the next coefficient becomes the current one, and the next coefficient
// grows by a fixed step. Affordability is left to the backend.
func LevelUp(b Building) Progression {
	return Progression{
		CurrLevel:       b.CurrLevel + 1,
		CurrCoefficient: b.NextCoefficient,
		NextCoefficient: b.NextCoefficient + constants.CoefficientStep,
	}
}
