package solver

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// SolveFile loads path, preprocesses it with DefaultParams and decodes it.
func SolveFile(path string) (Result, error) {
	img, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	return SolveImage(img, DefaultParams)
}

// SolveReader decodes an encoded image from r and solves it.
func SolveReader(r io.Reader) (Result, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return Result{}, &StageError{Stage: StageLoad, Err: fmt.Errorf("decode image: %w", err)}
	}
	return SolveImage(img, DefaultParams)
}

// SolveImage runs preprocessing and decoding on an already decoded image.
func SolveImage(img image.Image, p Params) (Result, error) {
	g, err := Preprocess(img, p)
	if err != nil {
		return Result{}, err
	}
	return Decode(g)
}
