package rules

import (
	"github.com/urnet/gameserver/internal/dependencies/random"
)

const DiceCount = 4

// Roll holds one throw of the four tetrahedral dice. Faces 1 to 3 are
// marked corners, 4 to 6 are unmarked; Value counts the marked faces
// and is the number of tiles the player may move.
type Roll struct {
	Faces [DiceCount]int
	Value int
}

func rollDice(r random.Random) Roll {
	var roll Roll

	for i := range roll.Faces {
		if r.Bool() {
			roll.Faces[i] = 1 + r.Intn(3)
			roll.Value++
		} else {
			roll.Faces[i] = 4 + r.Intn(3)
		}
	}

	return roll
}
