package solver

// ColumnSum returns the number of black pixels in column col.
// col must be within [0, g.Width()).
func ColumnSum(g *Grid, col int) int {
	if col < 0 || col >= g.width {
		panic("solver: column index out of range")
	}
	n := 0
	for _, black := range g.column(col) {
		if black {
			n++
		}
	}
	return n
}
