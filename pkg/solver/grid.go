package solver

import (
	"fmt"
	"image"
	"image/color"
)

// Grid is an immutable bilevel bitmap. true means black (ink).
type Grid struct {
	width  int
	height int
	pix    []bool // column-major: pix[col*height+row]
}

// NewGrid builds a width x height grid, asking black for every pixel.
func NewGrid(width, height int, black func(col, row int) bool) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyGrid
	}
	g := &Grid{width: width, height: height, pix: make([]bool, width*height)}
	for col := 0; col < width; col++ {
		for row := 0; row < height; row++ {
			g.pix[col*height+row] = black(col, row)
		}
	}
	return g, nil
}

// GridFromImage converts a monochrome image into a Grid. A pixel counts as
// black only when its luminance is exactly zero.
func GridFromImage(img image.Image) (*Grid, error) {
	b := img.Bounds()
	return NewGrid(b.Dx(), b.Dy(), func(col, row int) bool {
		g := color.Gray16Model.Convert(img.At(b.Min.X+col, b.Min.Y+row)).(color.Gray16)
		return g.Y == 0
	})
}

// GridFromColumns builds a grid whose column c holds exactly counts[c] black
// pixels, stacked from the top row.
func GridFromColumns(counts []int, height int) (*Grid, error) {
	for c, n := range counts {
		if n < 0 || n > height {
			return nil, fmt.Errorf("column %d: count %d outside [0,%d]", c, n, height)
		}
	}
	return NewGrid(len(counts), height, func(col, row int) bool {
		return row < counts[col]
	})
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Black reports whether (col,row) is ink. Out-of-range coordinates panic.
func (g *Grid) Black(col, row int) bool {
	if row < 0 || row >= g.height {
		panic(fmt.Sprintf("solver: row %d out of range [0,%d)", row, g.height))
	}
	return g.pix[col*g.height+row]
}

// column returns the backing slice for one column.
func (g *Grid) column(col int) []bool {
	return g.pix[col*g.height : (col+1)*g.height]
}

func (g *Grid) empty() bool {
	return g == nil || g.width <= 0 || g.height <= 0
}
