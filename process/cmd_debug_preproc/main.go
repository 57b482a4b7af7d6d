package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"numcap/pkg/solver"

	"github.com/disintegration/imaging"
)

func main() {
	out := flag.String("out", os.TempDir(), "directory for the stage images")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-out DIR] <FILENAME>\n", os.Args[0])
		os.Exit(2)
	}
	in := flag.Arg(0)

	img, err := solver.Load(in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	stages, err := solver.Stages(img, solver.DefaultParams)
	if err != nil {
		log.Fatalf("preprocess: %v", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	for i, st := range stages {
		dst := filepath.Join(*out, fmt.Sprintf("%s.%d-%s.png", base, i+1, st.Stage))
		if err := imaging.Save(st.Image, dst); err != nil {
			log.Fatalf("save %s: %v", dst, err)
		}
		fmt.Println(dst)
	}

	g, err := solver.Preprocess(img, solver.DefaultParams)
	if err != nil {
		log.Fatalf("grid: %v", err)
	}
	for _, seg := range solver.Segments(g) {
		fmt.Printf("cols %d-%d counts=%v signature=%d\n", seg.Start, seg.End-1, seg.Counts, seg.Signature)
	}
	res, err := solver.Decode(g)
	if err != nil {
		fmt.Printf("decode failed: %v\n", err)
		return
	}
	fmt.Printf("value=%d\n", res.Value)
}
