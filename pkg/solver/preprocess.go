package solver

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Params are the fixed preprocessing settings for the CAPTCHA layout.
type Params struct {
	Crop       image.Rectangle // relative to the image origin
	BlackPoint float64
	WhitePoint float64
	Gamma      float64
}

// DefaultParams drops the lower strip (not part of the CAPTCHA) and levels the
// digits apart from the background. Hand-tuned; keep as is.
var DefaultParams = Params{
	Crop:       image.Rect(0, 0, 76, 18),
	BlackPoint: 0.4,
	WhitePoint: 0.6,
	Gamma:      0.3,
}

// StageImage is one intermediate preprocessing result.
type StageImage struct {
	Stage Stage
	Image image.Image
}

// Load decodes an image file.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	return img, nil
}

// Crop returns the sub-image r (relative to the image origin). r must lie
// fully inside the image.
func Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	b := img.Bounds()
	abs := r.Add(b.Min)
	if r.Empty() || !abs.In(b) {
		return nil, fmt.Errorf("%w: %v not within %dx%d", ErrCropOutOfBounds, r, b.Dx(), b.Dy())
	}
	return imaging.Crop(img, abs), nil
}

// srgbToLinear maps an sRGB-encoded byte to linear light in [0,1].
var srgbToLinear = func() (lut [256]float64) {
	for i := range lut {
		v := float64(i) / 255
		if v <= 0.04045 {
			lut[i] = v / 12.92
		} else {
			lut[i] = math.Pow((v+0.055)/1.055, 2.4)
		}
	}
	return lut
}()

// linearToSRGB maps a linear-light byte back to its sRGB encoding.
var linearToSRGB = func() (lut [256]uint8) {
	for i := range lut {
		v := float64(i) / 255
		if v <= 0.0031308 {
			v *= 12.92
		} else {
			v = 1.055*math.Pow(v, 1/2.4) - 0.055
		}
		lut[i] = clamp8(255 * v)
	}
	return lut
}()

// Grayscale converts to Rec.709 luminance computed in linear light. The
// result holds linear values, which is what Level operates on.
func Grayscale(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		y := 0.2126*srgbToLinear[c.R] + 0.7152*srgbToLinear[c.G] + 0.0722*srgbToLinear[c.B]
		v := clamp8(255 * y)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// Level remaps each channel so that values at or below black become 0, values
// at or above white become full intensity, with a gamma curve in between.
// black, white and gamma are fractions of the full range.
func Level(img image.Image, black, white, gamma float64) (*image.NRGBA, error) {
	if black < 0 || black > 1 || white < 0 || white > 1 || white <= black || gamma <= 0 {
		return nil, fmt.Errorf("%w: black=%g white=%g gamma=%g", ErrBadLevel, black, white, gamma)
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(255 * levelValue(float64(i)/255, black, white, gamma))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	}), nil
}

func levelValue(v, black, white, gamma float64) float64 {
	t := (v - black) / (white - black)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return math.Pow(t, 1/gamma)
}

// Monochrome turns linear gray into a bilevel image: re-encode to sRGB gray,
// stretch the histogram, then threshold at half intensity (up to the
// midpoint is black).
func Monochrome(img image.Image) *image.NRGBA {
	enc := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := linearToSRGB[(uint32(c.R)+uint32(c.G)+uint32(c.B))/3]
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
	black, white := stretchBounds(enc)
	return imaging.AdjustFunc(enc, func(c color.NRGBA) color.NRGBA {
		if stretch(c.R, black, white) <= 127 {
			return color.NRGBA{A: 255}
		}
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	})
}

// stretchBounds finds the histogram cut-offs of a normalize: 0.15% of the
// pixels clip to black and 0.05% to white.
func stretchBounds(img *image.NRGBA) (black, white int) {
	var hist [256]float64
	for i := 0; i < len(img.Pix); i += 4 {
		hist[img.Pix[i]]++
	}
	n := float64(len(img.Pix) / 4)
	blackPoint, whitePoint := n*0.0015, n*0.9995

	var acc float64
	for black = 0; black < 255; black++ {
		acc += hist[black]
		if acc > blackPoint {
			break
		}
	}
	acc = 0
	for white = 255; white > 0; white-- {
		acc += hist[white]
		if acc > n-whitePoint {
			break
		}
	}
	return black, white
}

func stretch(v uint8, black, white int) uint8 {
	switch i := int(v); {
	case i < black:
		return 0
	case i > white:
		return 255
	case black != white:
		return clamp8(255 * float64(i-black) / float64(white-black))
	}
	return v
}

// Stages runs the preprocessing chain and returns every intermediate image.
func Stages(img image.Image, p Params) ([]StageImage, error) {
	cropped, err := Crop(img, p.Crop)
	if err != nil {
		return nil, &StageError{Stage: StageCrop, Err: err}
	}
	gray := Grayscale(cropped)
	leveled, err := Level(gray, p.BlackPoint, p.WhitePoint, p.Gamma)
	if err != nil {
		return nil, &StageError{Stage: StageLevel, Err: err}
	}
	mono := Monochrome(leveled)
	return []StageImage{
		{Stage: StageCrop, Image: cropped},
		{Stage: StageGray, Image: gray},
		{Stage: StageLevel, Image: leveled},
		{Stage: StageMono, Image: mono},
	}, nil
}

// Preprocess turns a decoded CAPTCHA image into a Grid.
func Preprocess(img image.Image, p Params) (*Grid, error) {
	stages, err := Stages(img, p)
	if err != nil {
		return nil, err
	}
	g, err := GridFromImage(stages[len(stages)-1].Image)
	if err != nil {
		return nil, &StageError{Stage: StageGrid, Err: err}
	}
	return g, nil
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
