package solver

import (
	"errors"
	"math/rand"
	"testing"
)

const testHeight = 18

// Column profiles whose weighted sums hit table entries.
var (
	glyphOne   = []int{3, 6, 10, 14}           // 3+12+30+56 = 101
	glyphTwo   = []int{18, 16, 16, 16, 16, 16} // 338
	glyphFour  = []int{16, 16, 16, 16, 16, 16} // 336
	glyphSeven = []int{16, 16, 16, 16, 15, 11} // 301
	glyph29    = []int{5, 6, 4}                // 29, not in the table
)

func columns(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func gap(n int) []int { return make([]int, n) }

func mustGrid(t *testing.T, counts []int) *Grid {
	t.Helper()
	g, err := GridFromColumns(counts, testHeight)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return g
}

func TestDecodeTwoDigits(t *testing.T) {
	g := mustGrid(t, columns(gap(2), glyphOne, gap(2), glyphTwo, gap(1)))
	res, err := Decode(g)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Value != 12 {
		t.Fatalf("expected 12 got %d", res.Value)
	}
	if len(res.Segments) != 2 || res.Segments[0].Start != 2 || res.Segments[1].Start != 8 {
		t.Fatalf("unexpected segments %+v", res.Segments)
	}
}

func TestDecodeOrderIsLeftToRight(t *testing.T) {
	g := mustGrid(t, columns(gap(1), glyphSeven, gap(1), glyphFour, gap(3), glyphOne, gap(1)))
	res, err := Decode(g)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Value != 741 {
		t.Fatalf("expected 741 got %d (digits=%v)", res.Value, res.Digits)
	}
}

func TestDecodeUnrecognizedSignature(t *testing.T) {
	g := mustGrid(t, []int{0, 0, 5, 6, 4, 0, 0})
	res, err := Decode(g)
	var ue *UnrecognizedSignatureError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnrecognizedSignatureError got %v", err)
	}
	if ue.Signature != 29 || ue.Start != 2 {
		t.Fatalf("unexpected error fields %+v", ue)
	}
	if err.Error() != "unrecognized segment signature: 29" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if res.Value != 0 || res.Digits != nil {
		t.Fatalf("partial result leaked: %+v", res)
	}
}

func TestDecodeFailFastDropsPartialValue(t *testing.T) {
	// 1 is recognized first, then 29 aborts; the 1 must not surface.
	g := mustGrid(t, columns(gap(1), glyphOne, gap(1), glyph29, gap(1), glyphTwo, gap(1)))
	res, err := Decode(g)
	if !IsClassification(err) {
		t.Fatalf("expected classification error got %v", err)
	}
	if res.Value != 0 {
		t.Fatalf("expected zero value got %d", res.Value)
	}
}

func TestScanStopsWhenEmitRefuses(t *testing.T) {
	g := mustGrid(t, columns(gap(1), glyph29, gap(1), glyphOne, gap(1)))
	calls := 0
	scan(g, func(Segment) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Fatalf("expected scan to stop after first segment, emit called %d times", calls)
	}
}

func TestDecodeStrayPixelOnly(t *testing.T) {
	_, err := Decode(mustGrid(t, []int{0, 1, 0}))
	if !errors.Is(err, ErrNoDigits) {
		t.Fatalf("expected ErrNoDigits got %v", err)
	}
}

func TestDecodeTrailingSegmentDropped(t *testing.T) {
	_, err := Decode(mustGrid(t, columns(gap(2), glyphOne)))
	if !errors.Is(err, ErrNoDigits) {
		t.Fatalf("expected ErrNoDigits got %v", err)
	}
	// Same glyph followed by another open one: only the closed digit counts.
	res, err := Decode(mustGrid(t, columns(glyphOne, gap(1), glyphTwo)))
	if err != nil || res.Value != 1 {
		t.Fatalf("expected 1 got %d err=%v", res.Value, err)
	}
}

func TestDecodeEmptyGrid(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("expected ErrEmptyGrid got %v", err)
	}
	if _, err := Decode(&Grid{}); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("expected ErrEmptyGrid for zero grid got %v", err)
	}
	if _, err := GridFromColumns(nil, testHeight); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("expected ErrEmptyGrid from constructor got %v", err)
	}
}

func TestEmptyColumnBoundary(t *testing.T) {
	segs := Segments(mustGrid(t, []int{0, 1, 2, 2, 1, 0, 1, 0}))
	if len(segs) != 1 {
		t.Fatalf("expected one segment got %+v", segs)
	}
	s := segs[0]
	if s.Start != 2 || s.End != 4 || s.Signature != 2*1+2*2 {
		t.Fatalf("unexpected segment %+v", s)
	}
}

func TestSignatureIsWeightedSum(t *testing.T) {
	counts := []int{7, 2, 18, 9, 3}
	segs := Segments(mustGrid(t, columns(gap(1), counts, gap(1))))
	if len(segs) != 1 {
		t.Fatalf("expected one segment got %d", len(segs))
	}
	var want uint64
	for k, n := range counts {
		want += uint64(n * (k + 1))
	}
	if segs[0].Signature != want {
		t.Fatalf("signature %d want %d", segs[0].Signature, want)
	}
	for i, n := range counts {
		if segs[0].Counts[i] != n {
			t.Fatalf("counts %v want %v", segs[0].Counts, counts)
		}
	}
}

func TestColumnSumBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g, err := NewGrid(40, testHeight, func(int, int) bool { return rng.Intn(3) == 0 })
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	for c := 0; c < g.Width(); c++ {
		n := ColumnSum(g, c)
		if n < 0 || n > g.Height() {
			t.Fatalf("column %d sum %d outside [0,%d]", c, n, g.Height())
		}
		manual := 0
		for r := 0; r < g.Height(); r++ {
			if g.Black(c, r) {
				manual++
			}
		}
		if manual != n {
			t.Fatalf("column %d sum %d want %d", c, n, manual)
		}
	}
}

func TestDecodeDeterministic(t *testing.T) {
	g := mustGrid(t, columns(gap(1), glyphTwo, gap(1), glyphSeven, gap(1)))
	a, errA := Decode(g)
	b, errB := Decode(g)
	if errA != nil || errB != nil || a.Value != b.Value || a.Value != 27 {
		t.Fatalf("non deterministic decode: %d/%v vs %d/%v", a.Value, errA, b.Value, errB)
	}
}

func TestClassifyHasNoZero(t *testing.T) {
	seen := map[int]bool{}
	for sig, d := range KnownSignatures() {
		if got, ok := Classify(sig); !ok || got != d {
			t.Fatalf("Classify(%d) = %d,%v", sig, got, ok)
		}
		seen[d] = true
	}
	if seen[0] || len(seen) != 9 {
		t.Fatalf("unexpected digit coverage %v", seen)
	}
	if _, ok := Classify(0); ok {
		t.Fatalf("signature 0 must be unrecognized")
	}
}

func TestGridFromColumnsRejectsOverflow(t *testing.T) {
	if _, err := GridFromColumns([]int{19}, testHeight); err == nil {
		t.Fatalf("expected error for count above height")
	}
}
