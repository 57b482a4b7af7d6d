package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"numcap/pkg/calibrate"
	"numcap/pkg/solver"
)

// Main: prints every segment of the given captchas and, for signatures the
// table does not know yet, what Tesseract reads in the glyph.
func main() {
	noOCR := flag.Bool("no-ocr", false, "only print signatures, skip Tesseract")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-no-ocr] <FILENAME>...\n", os.Args[0])
		os.Exit(2)
	}

	var reader calibrate.DigitReader
	if !*noOCR {
		tr, err := calibrate.NewTesseractReader()
		if err != nil {
			log.Fatalf("tesseract: %v", err)
		}
		defer tr.Close()
		reader = tr
	}

	var all []calibrate.Suggestion
	for _, path := range flag.Args() {
		img, err := solver.Load(path)
		if err != nil {
			log.Printf("WARN %v", err)
			continue
		}
		g, err := solver.Preprocess(img, solver.DefaultParams)
		if err != nil {
			log.Printf("WARN %s: %v", path, err)
			continue
		}
		sugg := calibrate.Analyze(g, reader)
		fmt.Printf("%s:\n", path)
		for _, s := range sugg {
			switch {
			case s.Known:
				fmt.Printf("  cols %d-%d signature=%d digit=%d\n", s.Segment.Start, s.Segment.End-1, s.Segment.Signature, s.Digit)
			case s.OCRErr != nil:
				fmt.Printf("  cols %d-%d signature=%d unknown (ocr error: %v)\n", s.Segment.Start, s.Segment.End-1, s.Segment.Signature, s.OCRErr)
			default:
				fmt.Printf("  cols %d-%d signature=%d unknown ocr=%q\n", s.Segment.Start, s.Segment.End-1, s.Segment.Signature, s.OCR)
			}
		}
		all = append(all, sugg...)
	}

	props := calibrate.Proposals(all)
	if len(props) == 0 {
		return
	}
	sigs := make([]uint64, 0, len(props))
	for sig := range props {
		sigs = append(sigs, sig)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	fmt.Println("Proposed table entries (review before adding):")
	for _, sig := range sigs {
		note := ""
		if props[sig] == 0 {
			note = " // no table entry for 0 yet"
		}
		fmt.Printf("  %d: %d,%s\n", sig, props[sig], note)
	}
}
