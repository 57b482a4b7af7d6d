package solver

// EmptyColumnThreshold is the black-pixel count below which a column is
// treated as a gap between glyphs. Columns with a single stray pixel stay empty.
const EmptyColumnThreshold = 2

// Segment is a maximal run of non-empty columns closed by an empty column.
type Segment struct {
	Start     int   // first column
	End       int   // column that closed the segment (exclusive end)
	Counts    []int // black pixels per column, left to right
	Signature uint64
}

// Result is a successful decode.
type Result struct {
	Value    uint64
	Digits   []int
	Segments []Segment
}

// scanner holds the transient state of one left-to-right pass.
type scanner struct {
	capturing  bool
	multiplier uint64
	signature  uint64
	start      int
	counts     []int
}

func (s *scanner) begin(col int) {
	s.capturing = true
	s.multiplier = 0
	s.signature = 0
	s.start = col
	s.counts = nil
}

func (s *scanner) accumulate(n int) {
	s.multiplier++
	s.signature += uint64(n) * s.multiplier
	s.counts = append(s.counts, n)
}

func (s *scanner) close(col int) Segment {
	seg := Segment{Start: s.start, End: col, Counts: s.counts, Signature: s.signature}
	*s = scanner{}
	return seg
}

// scan walks every column once and calls emit for each closed segment.
// A false return from emit stops the pass; remaining columns are not read.
// A segment still open at the right edge is dropped.
func scan(g *Grid, emit func(Segment) bool) {
	var s scanner
	for col := 0; col < g.width; col++ {
		n := ColumnSum(g, col)
		if n < EmptyColumnThreshold {
			if s.capturing && !emit(s.close(col)) {
				return
			}
			continue
		}
		if !s.capturing {
			s.begin(col)
		}
		s.accumulate(n)
	}
}

// Segments returns every closed segment of g without classifying them.
func Segments(g *Grid) []Segment {
	if g.empty() {
		return nil
	}
	var out []Segment
	scan(g, func(seg Segment) bool {
		out = append(out, seg)
		return true
	})
	return out
}

// Decode reads the number drawn in g. It fails on the first segment whose
// signature is unknown, and when no segment is found at all.
func Decode(g *Grid) (Result, error) {
	if g.empty() {
		return Result{}, ErrEmptyGrid
	}
	var (
		acc  accumulator
		segs []Segment
		bad  *UnrecognizedSignatureError
	)
	scan(g, func(seg Segment) bool {
		d, ok := Classify(seg.Signature)
		if !ok {
			bad = &UnrecognizedSignatureError{Signature: seg.Signature, Start: seg.Start}
			return false
		}
		acc.add(d)
		segs = append(segs, seg)
		return true
	})
	if bad != nil {
		return Result{}, bad
	}
	if !acc.ok() {
		return Result{}, ErrNoDigits
	}
	return Result{Value: acc.value, Digits: acc.digits, Segments: segs}, nil
}
