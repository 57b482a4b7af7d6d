package models

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"numcap/pkg/solver"
)

// NewAttempt builds the row for one solve. err is the solver error, if any.
func NewAttempt(source, fileName string, res solver.Result, err error, took time.Duration) Attempt {
	a := Attempt{
		Source:     source,
		FileName:   fileName,
		DurationMs: took.Milliseconds(),
	}
	if err != nil {
		a.Reason = solver.Reason(err)
		var ue *solver.UnrecognizedSignatureError
		if errors.As(err, &ue) {
			sig := int64(ue.Signature)
			a.Signature = &sig
		}
		return a
	}
	a.Success = true
	a.Value = int64(res.Value)
	a.Digits = digitString(res.Digits)
	return a
}

func digitString(ds []int) string {
	var b strings.Builder
	for _, d := range ds {
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}
