package rules

import (
	"fmt"

	"github.com/urnet/gameserver/internal/model"
)

const (
	BoardWidth  = 3
	BoardHeight = 8
	TileCount   = BoardWidth * BoardHeight
)

// Tile is a board coordinate. X grows right, Y grows away from each
// player's entry row.
type Tile struct {
	X int
	Y int
}

func TileAt(index int) Tile {
	return Tile{X: index % BoardWidth, Y: index / BoardWidth}
}

func (t Tile) Index() int {
	return t.Y*BoardWidth + t.X
}

func (t Tile) Valid() bool {
	return t.X >= 0 && t.X < BoardWidth && t.Y >= 0 && t.Y < BoardHeight
}

func (t Tile) String() string {
	return fmt.Sprintf("(%d, %d)", t.X, t.Y)
}

var rosettes = []Tile{
	{0, 0},
	{2, 0},
	{1, 3},
	{0, 6},
	{2, 6},
}

// Rosette reports whether landing on this tile grants another turn and
// protects the occupant from capture.
func (t Tile) Rosette() bool {
	for _, r := range rosettes {
		if t == r {
			return true
		}
	}
	return false
}

// Paths run from an off-play entry marker, along the player's own column,
// down the shared middle column, and back to an off-play exit marker.
// The first and last tiles never hold a piece.
var (
	lightPath = buildPath(Tile{0, 4}, Tile{0, 0}, Tile{1, 0}, Tile{1, 7}, Tile{0, 7}, Tile{0, 5})
	darkPath  = buildPath(Tile{2, 4}, Tile{2, 0}, Tile{1, 0}, Tile{1, 7}, Tile{2, 7}, Tile{2, 5})
)

func PathFor(seat model.Seat) []Tile {
	if seat == model.SeatLight {
		return lightPath
	}
	return darkPath
}

func EntryTile(seat model.Seat) Tile {
	path := PathFor(seat)
	return path[0]
}

func ExitTile(seat model.Seat) Tile {
	path := PathFor(seat)
	return path[len(path)-1]
}

// buildPath walks between consecutive waypoints one tile at a time,
// including the first waypoint and the last.
func buildPath(waypoints ...Tile) []Tile {
	var path []Tile

	from := waypoints[0]
	for _, to := range waypoints[1:] {
		for from != to {
			path = append(path, from)
			from = Tile{X: from.X + sign(to.X-from.X), Y: from.Y + sign(to.Y-from.Y)}
		}
	}

	return append(path, from)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
