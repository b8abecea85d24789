package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cell is one terminal column. Wide glyphs occupy a cell of width 2 followed
// by a continuation cell of width 0.
type cell struct {
	s     string
	width int
	blank bool
}

type canvas struct {
	cols  int
	rows  int
	cells [][]cell
}

func newCanvas(cols, rows int) *canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	c := &canvas{cols: cols, rows: rows, cells: make([][]cell, rows)}
	for r := range c.cells {
		line := make([]cell, cols)
		for i := range line {
			line[i] = cell{s: " ", width: 1, blank: true}
		}
		c.cells[r] = line
	}
	return c
}

// put draws text at col,row. It refuses text that would leave the canvas or
// overlap something already drawn.
func (c *canvas) put(col, row int, text string, style lipgloss.Style) bool {
	w := runewidth.StringWidth(text)
	if w == 0 || row < 0 || row >= c.rows || col < 0 || col+w > c.cols {
		return false
	}
	line := c.cells[row]
	for i := col; i < col+w; i++ {
		if !line[i].blank {
			return false
		}
	}
	line[col] = cell{s: style.Render(text), width: w}
	for i := col + 1; i < col+w; i++ {
		line[i] = cell{}
	}
	return true
}

// project maps logical field coordinates onto canvas cells.
func (c *canvas) project(x, y, width, height float64) (col, row int) {
	if width <= 0 || height <= 0 {
		return -1, -1
	}
	col = int(x / width * float64(c.cols))
	row = int(y / height * float64(c.rows))
	if y < 0 {
		row = -1
	}
	return col, row
}

func (c *canvas) String() string {
	var b strings.Builder
	for r, line := range c.cells {
		if r > 0 {
			b.WriteByte('\n')
		}
		for _, cl := range line {
			if cl.width == 0 {
				continue
			}
			b.WriteString(cl.s)
		}
	}
	return b.String()
}
