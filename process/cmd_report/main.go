package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"numcap/process/report"
)

func main() {
	from := flag.String("from", time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02"), "first day to report (YYYY-MM-DD)")
	days := flag.Int("days", 7, "number of days to report")
	chartPath := flag.String("chart", "", "write a success-rate PNG chart to this path")
	list := flag.Bool("list", false, "list matching attempts")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	start, err := time.Parse("2006-01-02", *from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from, expected YYYY-MM-DD: %v\n", err)
		os.Exit(2)
	}
	if *days <= 0 {
		fmt.Fprintln(os.Stderr, "-days must be positive")
		os.Exit(2)
	}

	report.RunReport(start, *days, *chartPath, *list)
}
