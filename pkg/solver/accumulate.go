package solver

// accumulator folds classified digits into a decimal value, most significant first.
type accumulator struct {
	value  uint64
	digits []int
}

func (a *accumulator) add(d int) {
	a.value = a.value*10 + uint64(d)
	a.digits = append(a.digits, d)
}

func (a *accumulator) ok() bool { return len(a.digits) > 0 }
