package smb

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

const (
	tileSize  = 16
	levelRows = ScreenHeight / tileSize
	groundRow = 13
)

type tile uint8

const (
	tileEmpty tile = iota
	tileGround
	tilePipe
	tileCoin
	tilePole
)

func (t tile) solid() bool {
	return t == tileGround || t == tilePipe
}

// Stage identifies a level as world-stage, both 1-based.
type Stage struct {
	World int
	Stage int
}

func (s Stage) String() string {
	return fmt.Sprintf("%d-%d", s.World, s.Stage)
}

func (s Stage) valid() bool {
	return s.World >= 1 && s.World <= Worlds && s.Stage >= 1 && s.Stage <= StagesPerWorld
}

// next returns the stage after s and false once the last stage is done.
func (s Stage) next() (Stage, bool) {
	if s.Stage < StagesPerWorld {
		return Stage{s.World, s.Stage + 1}, true
	}
	if s.World < Worlds {
		return Stage{s.World + 1, 1}, true
	}
	return s, false
}

// ParseStage parses "world-stage", e.g. "4-2".
func ParseStage(s string) (Stage, error) {
	w, st, ok := strings.Cut(s, "-")
	if !ok {
		return Stage{}, fmt.Errorf("stage %q: want world-stage", s)
	}
	world, err := strconv.Atoi(w)
	if err != nil {
		return Stage{}, fmt.Errorf("stage %q: %w", s, err)
	}
	stage, err := strconv.Atoi(st)
	if err != nil {
		return Stage{}, fmt.Errorf("stage %q: %w", s, err)
	}
	out := Stage{World: world, Stage: stage}
	if !out.valid() {
		return Stage{}, fmt.Errorf("stage %q out of range 1-1..%d-%d", s, Worlds, StagesPerWorld)
	}
	return out, nil
}

// level is a tile map, one column per 16 pixels.
type level struct {
	stage      Stage
	lost       bool
	cols       int
	tiles      []tile
	goombaCols []int
	flagCol    int
}

// newLevel builds the layout for a stage. Layouts are a pure function of
// the stage and the game variant.
func newLevel(stage Stage, lost bool) *level {
	seed := int64(stage.World*131 + stage.Stage*17)
	if lost {
		seed += 7919
	}
	rng := rand.New(rand.NewSource(seed))

	cols := 192 + 8*stage.Stage
	l := &level{
		stage: stage,
		lost:  lost,
		cols:  cols,
		tiles: make([]tile, cols*levelRows),
	}
	for c := 0; c < cols; c++ {
		l.set(c, groundRow, tileGround)
		l.set(c, groundRow+1, tileGround)
	}

	pitChance := 0.06 + 0.01*float64(stage.World-1)
	maxPit := 2
	if stage.World >= 5 {
		maxPit = 3
	}
	if lost {
		pitChance += 0.06
		maxPit = 4
	}

	end := cols - 24
	col := 18
	for col < end {
		r := rng.Float64()
		switch {
		case r < pitChance:
			w := 2 + rng.Intn(maxPit-1)
			for c := col; c < col+w && c < end; c++ {
				l.set(c, groundRow, tileEmpty)
				l.set(c, groundRow+1, tileEmpty)
			}
			col += w
		case r < pitChance+0.10:
			h := 2 + rng.Intn(3)
			for c := col; c < col+2; c++ {
				for row := groundRow - h; row < groundRow; row++ {
					l.set(c, row, tilePipe)
				}
			}
			col += 2
		case r < pitChance+0.22:
			n := 3 + rng.Intn(3)
			row := 9 + rng.Intn(2)
			for c := col; c < col+n && c < end; c++ {
				l.set(c, row, tileCoin)
			}
			col += n
		case r < pitChance+0.30:
			l.goombaCols = append(l.goombaCols, col)
			col++
		}
		col += 2 + rng.Intn(4)
	}

	l.flagCol = cols - 12
	for row := 3; row < groundRow; row++ {
		l.set(l.flagCol, row, tilePole)
	}
	return l
}

// at returns the tile at (col, row). Outside the level the sides are walls
// and above and below are open.
func (l *level) at(col, row int) tile {
	if col < 0 || col >= l.cols {
		return tileGround
	}
	if row < 0 || row >= levelRows {
		return tileEmpty
	}
	return l.tiles[row*l.cols+col]
}

func (l *level) set(col, row int, t tile) {
	if col < 0 || col >= l.cols || row < 0 || row >= levelRows {
		return
	}
	l.tiles[row*l.cols+col] = t
}

func (l *level) widthPx() float64 {
	return float64(l.cols * tileSize)
}
