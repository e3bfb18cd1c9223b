package smb

import "github.com/boristopalov/smbgym/pkg/core"

// RenderMode selects how frames are drawn. The id version suffix picks it.
type RenderMode int

const (
	RenderStandard RenderMode = iota
	RenderDownsample
	RenderPixel
	RenderRectangle
)

func (r RenderMode) String() string {
	switch r {
	case RenderStandard:
		return "standard"
	case RenderDownsample:
		return "downsample"
	case RenderPixel:
		return "pixel"
	case RenderRectangle:
		return "rectangle"
	default:
		return "unknown"
	}
}

type rgb [3]uint8

var (
	colorSky        = rgb{92, 148, 252}
	colorGround     = rgb{200, 76, 12}
	colorGroundEdge = rgb{136, 20, 0}
	colorPipe       = rgb{0, 168, 0}
	colorPipeEdge   = rgb{0, 104, 0}
	colorCoin       = rgb{252, 188, 60}
	colorPole       = rgb{188, 188, 188}
	colorFlag       = rgb{252, 252, 252}
	colorGoomba     = rgb{172, 80, 48}
	colorMario      = rgb{216, 40, 0}
	colorSkin       = rgb{252, 152, 56}
)

type frame struct {
	core.Observation
}

func newFrame() frame {
	return frame{core.NewObservation(ScreenHeight, ScreenWidth, Channels)}
}

func (f frame) fill(x, y, w, h int, c rgb) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, ScreenWidth), min(y+h, ScreenHeight)
	for py := y0; py < y1; py++ {
		row := py * ScreenWidth * Channels
		for px := x0; px < x1; px++ {
			i := row + px*Channels
			f.Data[i], f.Data[i+1], f.Data[i+2] = c[0], c[1], c[2]
		}
	}
}

// outline draws a box with a one pixel border.
func (f frame) outline(x, y, w, h int, fillColor, edge rgb) {
	f.fill(x, y, w, h, edge)
	f.fill(x+1, y+1, w-2, h-2, fillColor)
}

// pixelate replaces every n x n block with its top-left pixel.
func (f frame) pixelate(n int) {
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			src := ((y/n*n)*ScreenWidth + x/n*n) * Channels
			dst := (y*ScreenWidth + x) * Channels
			copy(f.Data[dst:dst+Channels], f.Data[src:src+Channels])
		}
	}
}

// render draws the camera window of the current game state.
func (g *game) render(mode RenderMode) core.Observation {
	f := newFrame()
	f.fill(0, 0, ScreenWidth, ScreenHeight, colorSky)
	detailed := mode == RenderStandard || mode == RenderDownsample

	cx := int(g.cameraX)
	first := cx / tileSize
	for col := first; col <= first+ScreenWidth/tileSize; col++ {
		sx := col*tileSize - cx
		for row := 0; row < levelRows; row++ {
			sy := row * tileSize
			switch g.lvl.at(col, row) {
			case tileGround:
				if detailed {
					f.outline(sx, sy, tileSize, tileSize, colorGround, colorGroundEdge)
				} else {
					f.fill(sx, sy, tileSize, tileSize, colorGround)
				}
			case tilePipe:
				if detailed {
					f.outline(sx, sy, tileSize, tileSize, colorPipe, colorPipeEdge)
				} else {
					f.fill(sx, sy, tileSize, tileSize, colorPipe)
				}
			case tileCoin:
				f.fill(sx+4, sy+2, 8, 12, colorCoin)
			case tilePole:
				f.fill(sx+7, sy, 2, tileSize, colorPole)
				if row == 3 {
					f.fill(sx-8, sy+2, 8, 8, colorFlag)
				}
			}
		}
	}

	for _, gb := range g.goombas {
		if gb.alive {
			f.fill(int(gb.x)-cx, int(gb.y)+4, tileSize, tileSize-4, colorGoomba)
		}
	}

	mx, my := int(g.mario.x)-cx, int(g.mario.y)
	f.fill(mx, my, tileSize, tileSize, colorMario)
	if detailed {
		f.fill(mx+4, my+4, 8, 4, colorSkin)
	}

	switch mode {
	case RenderDownsample:
		f.pixelate(2)
	case RenderPixel:
		f.pixelate(8)
	}
	return f.Observation
}
