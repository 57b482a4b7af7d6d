package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGrid is returned when there is no pixel to scan.
	ErrEmptyGrid = errors.New("empty grid")
	// ErrNoDigits is returned when the scan closed no segment at all.
	ErrNoDigits = errors.New("no digits detected")
	// ErrCropOutOfBounds is returned when the crop rectangle does not fit the image.
	ErrCropOutOfBounds = errors.New("crop rectangle out of bounds")
	// ErrBadLevel is returned for level parameters outside [0,1] or an empty range.
	ErrBadLevel = errors.New("invalid level parameters")
)

// UnrecognizedSignatureError reports a segment whose signature has no table entry.
type UnrecognizedSignatureError struct {
	Signature uint64
	Start     int // first column of the segment
}

func (e *UnrecognizedSignatureError) Error() string {
	return fmt.Sprintf("unrecognized segment signature: %d", e.Signature)
}

// Stage names a preprocessing step.
type Stage string

const (
	StageLoad   Stage = "load"
	StageCrop   Stage = "crop"
	StageGray   Stage = "gray"
	StageLevel  Stage = "level"
	StageMono   Stage = "mono"
	StageGrid   Stage = "grid"
	StageDecode Stage = "decode"
)

const (
	reasonNoDigits  = "no_digits"
	reasonSignature = "unrecognized_signature"
)

// StageError wraps a failure of one preprocessing stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// IsClassification reports whether err came from an unrecognized signature.
func IsClassification(err error) bool {
	var ue *UnrecognizedSignatureError
	return errors.As(err, &ue)
}

// Reason returns a short machine-readable failure reason for persistence.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if IsClassification(err) {
		return reasonSignature
	}
	if errors.Is(err, ErrNoDigits) {
		return reasonNoDigits
	}
	var se *StageError
	if errors.As(err, &se) {
		return string(se.Stage)
	}
	if errors.Is(err, ErrEmptyGrid) {
		return string(StageGrid)
	}
	return string(StageDecode)
}
