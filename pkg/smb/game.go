package smb

import "math"

const (
	ScreenHeight = 240
	ScreenWidth  = 256
	Channels     = 3

	Worlds         = 8
	StagesPerWorld = 4

	startLives      = 2
	startClock      = 400
	framesPerTick   = 24
	startX          = 40
	scrollThreshold = 112

	walkSpeed  = 1.5
	runSpeed   = 2.5
	walkAccel  = 0.1
	runAccel   = 0.15
	friction   = 0.1
	jumpSpeed  = 4.5
	bounce     = 3.0
	gravity    = 0.4
	holdGrav   = 0.2
	fallSpeed  = 4.0
	goombaWalk = 0.5
)

// body is an axis-aligned 16x16 box moving through the tile map.
type body struct {
	x, y     float64
	vx, vy   float64
	onGround bool
}

func tileOf(px float64) int {
	return int(math.Floor(px / tileSize))
}

func (b *body) overlaps(o *body) bool {
	return b.x < o.x+tileSize && o.x < b.x+tileSize &&
		b.y < o.y+tileSize && o.y < b.y+tileSize
}

// move applies velocity one axis at a time and stops at solid tiles. It
// reports whether horizontal motion hit a wall.
func (b *body) move(l *level) bool {
	hitWall := false
	b.x += b.vx
	if b.vx != 0 {
		top, bottom := tileOf(b.y), tileOf(b.y+tileSize-0.01)
		if b.vx > 0 {
			col := tileOf(b.x + tileSize - 0.01)
			for row := top; row <= bottom; row++ {
				if l.at(col, row).solid() {
					b.x = float64(col*tileSize - tileSize)
					hitWall = true
					break
				}
			}
		} else {
			col := tileOf(b.x)
			for row := top; row <= bottom; row++ {
				if l.at(col, row).solid() {
					b.x = float64((col + 1) * tileSize)
					hitWall = true
					break
				}
			}
		}
	}

	b.y += b.vy
	b.onGround = false
	left, right := tileOf(b.x), tileOf(b.x+tileSize-0.01)
	switch {
	case b.vy > 0:
		row := tileOf(b.y + tileSize - 0.01)
		for col := left; col <= right; col++ {
			if l.at(col, row).solid() {
				b.y = float64(row*tileSize - tileSize)
				b.vy = 0
				b.onGround = true
				break
			}
		}
	case b.vy < 0:
		row := tileOf(b.y)
		for col := left; col <= right; col++ {
			if l.at(col, row).solid() {
				b.y = float64((row + 1) * tileSize)
				b.vy = 0
				break
			}
		}
	}
	return hitWall
}

type goomba struct {
	body
	alive bool
}

type event uint8

const (
	eventNone event = iota
	eventDied
	eventFlag
)

// game is the simulated console: one call to tick is one frame.
type game struct {
	lvl      *level
	stage    Stage
	lost     bool
	mario    body
	jumpHeld bool
	goombas  []*goomba
	cameraX  float64
	frame    int
	clock    int
	lives    int
	coins    int
	score    int
	flagGet  bool
}

func newGame(stage Stage, lost bool) *game {
	g := &game{lost: lost, lives: startLives}
	g.loadStage(stage)
	return g
}

func (g *game) loadStage(stage Stage) {
	g.stage = stage
	g.respawn()
}

// respawn restarts the current stage with a fresh layout.
func (g *game) respawn() {
	g.lvl = newLevel(g.stage, g.lost)
	g.mario = body{x: startX, y: groundRow*tileSize - tileSize, onGround: true}
	g.jumpHeld = false
	g.cameraX = 0
	g.frame = 0
	g.clock = startClock
	g.flagGet = false
	g.goombas = g.goombas[:0]
	for _, col := range g.lvl.goombaCols {
		g.goombas = append(g.goombas, &goomba{
			body:  body{x: float64(col * tileSize), y: groundRow*tileSize - tileSize, vx: -goombaWalk},
			alive: true,
		})
	}
}

func (g *game) tick(buttons uint8) event {
	g.frame++
	if g.frame%framesPerTick == 0 {
		g.clock--
		if g.clock <= 0 {
			g.clock = 0
			return eventDied
		}
	}

	m := &g.mario
	right := buttons&ButtonRight != 0
	left := buttons&ButtonLeft != 0
	maxSpeed, accel := walkSpeed, walkAccel
	if buttons&ButtonB != 0 {
		maxSpeed, accel = runSpeed, runAccel
	}
	switch {
	case right && !left:
		m.vx += accel
	case left && !right:
		m.vx -= accel
	case m.vx > 0:
		m.vx = math.Max(0, m.vx-friction)
	case m.vx < 0:
		m.vx = math.Min(0, m.vx+friction)
	}
	if m.vx > maxSpeed {
		m.vx = math.Max(maxSpeed, m.vx-friction)
	}
	if m.vx < -maxSpeed {
		m.vx = math.Min(-maxSpeed, m.vx+friction)
	}

	jump := buttons&ButtonA != 0
	if jump && !g.jumpHeld && m.onGround {
		m.vy = -jumpSpeed
	}
	g.jumpHeld = jump
	if jump && m.vy < 0 {
		m.vy += holdGrav
	} else {
		m.vy += gravity
	}
	m.vy = math.Min(m.vy, fallSpeed)

	if m.move(g.lvl) {
		m.vx = 0
	}
	if m.x < g.cameraX {
		m.x = g.cameraX
		m.vx = math.Max(0, m.vx)
	}
	if m.x-g.cameraX > scrollThreshold {
		g.cameraX = math.Min(m.x-scrollThreshold, g.lvl.widthPx()-ScreenWidth)
	}

	g.collectCoins()

	if m.y > ScreenHeight {
		return eventDied
	}
	if g.updateGoombas() {
		return eventDied
	}

	pole := float64(g.lvl.flagCol * tileSize)
	if m.x+tileSize > pole && m.x < pole+tileSize {
		g.flagGet = true
		g.score += 1000
		return eventFlag
	}
	return eventNone
}

func (g *game) collectCoins() {
	m := &g.mario
	for col := tileOf(m.x); col <= tileOf(m.x+tileSize-0.01); col++ {
		for row := tileOf(m.y); row <= tileOf(m.y+tileSize-0.01); row++ {
			if g.lvl.at(col, row) != tileCoin {
				continue
			}
			g.lvl.set(col, row, tileEmpty)
			g.score += 200
			g.coins++
			if g.coins == 100 {
				g.coins = 0
				g.lives++
			}
		}
	}
}

// updateGoombas moves the goombas near the screen and reports whether one
// killed mario.
func (g *game) updateGoombas() bool {
	m := &g.mario
	horizon := g.cameraX + ScreenWidth + 2*tileSize
	for _, gb := range g.goombas {
		if !gb.alive || gb.x > horizon {
			continue
		}
		gb.vy = math.Min(gb.vy+gravity, fallSpeed)
		if gb.move(g.lvl) {
			gb.vx = -gb.vx
			if gb.vx == 0 {
				gb.vx = goombaWalk
			}
		}
		if gb.y > ScreenHeight {
			gb.alive = false
			continue
		}
		if !m.overlaps(&gb.body) {
			continue
		}
		if m.vy > 0 && m.y+tileSize-gb.y < tileSize/2 {
			gb.alive = false
			m.vy = -bounce
			g.score += 100
			continue
		}
		return true
	}
	return false
}
