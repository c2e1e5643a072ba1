// Package capture models the hand-drawn signature surface. Strokes are
// accumulated point by point and rasterized to the PNG payload that the
// workflow stores and hashes into the audit trail.
package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

const (
	DefaultWidth  = 600
	DefaultHeight = 200
)

type Point struct {
	X int
	Y int
}

// Canvas collects pen strokes. A stroke begins on pen-down, extends
// while the pen moves and ends on pen-up; unfinished strokes are not
// part of the drawing.
type Canvas struct {
	mu      sync.Mutex
	width   int
	height  int
	strokes [][]Point
	current []Point
	drawing bool
	onClear func()
}

func NewCanvas(width, height int) *Canvas {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Canvas{width: width, height: height}
}

// OnClear registers a callback invoked whenever the surface is wiped.
func (c *Canvas) OnClear(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClear = fn
}

func (c *Canvas) Begin(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = []Point{c.clamp(x, y)}
	c.drawing = true
}

func (c *Canvas) Extend(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.drawing {
		return
	}
	c.current = append(c.current, c.clamp(x, y))
}

func (c *Canvas) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.drawing {
		return
	}
	if len(c.current) > 0 {
		c.strokes = append(c.strokes, c.current)
	}
	c.current = nil
	c.drawing = false
}

// Clear wipes every stroke and notifies the registered listener so the
// caller can discard any pending signature payload.
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.strokes = nil
	c.current = nil
	c.drawing = false
	notify := c.onClear
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (c *Canvas) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.strokes) == 0
}

// Data renders the completed strokes as a PNG. It returns nil while the
// surface is blank, which the workflow rejects as an empty signature.
func (c *Canvas) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.strokes) == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	ink := color.RGBA{A: 0xff}
	for _, stroke := range c.strokes {
		if len(stroke) == 1 {
			img.Set(stroke[0].X, stroke[0].Y, ink)
			continue
		}
		for i := 1; i < len(stroke); i++ {
			drawLine(img, stroke[i-1], stroke[i], ink)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (c *Canvas) clamp(x, y int) Point {
	if x < 0 {
		x = 0
	}
	if x >= c.width {
		x = c.width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= c.height {
		y = c.height - 1
	}
	return Point{X: x, Y: y}
}

// Bresenham line between two stroke points.
func drawLine(img *image.RGBA, from, to Point, ink color.RGBA) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx := 1
	if from.X > to.X {
		sx = -1
	}
	sy := 1
	if from.Y > to.Y {
		sy = -1
	}
	err := dx + dy
	x, y := from.X, from.Y
	for {
		img.Set(x, y, ink)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
