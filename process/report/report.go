package report

import (
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"numcap/models"

	"gonum.org/v1/gonum/stat"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DayStats aggregates the attempts of one UTC day.
type DayStats struct {
	Day       string
	Total     int
	Succeeded int
	Reasons   map[string]int
	MeanMs    float64
	StdDevMs  float64
}

// SuccessRate is the share of solved attempts in [0,1].
func (d DayStats) SuccessRate() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Succeeded) / float64(d.Total)
}

// SortedReasons lists the failure reasons of the day in name order.
func (d DayStats) SortedReasons() []string {
	out := make([]string, 0, len(d.Reasons))
	for r := range d.Reasons {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// Summarize groups attempts by UTC day, oldest first.
func Summarize(attempts []models.Attempt) []DayStats {
	byDay := map[string]*DayStats{}
	durations := map[string][]float64{}
	for _, a := range attempts {
		day := a.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DayStats{Day: day, Reasons: map[string]int{}}
			byDay[day] = d
		}
		d.Total++
		if a.Success {
			d.Succeeded++
		} else {
			d.Reasons[a.Reason]++
		}
		durations[day] = append(durations[day], float64(a.DurationMs))
	}

	out := make([]DayStats, 0, len(byDay))
	for day, d := range byDay {
		xs := durations[day]
		if len(xs) > 1 {
			d.MeanMs, d.StdDevMs = stat.MeanStdDev(xs, nil)
		} else {
			d.MeanMs = stat.Mean(xs, nil)
		}
		if math.IsNaN(d.StdDevMs) {
			d.StdDevMs = 0
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// RunReport prints per-day solve statistics for [from, from+days) and
// optionally lists every attempt and writes a success-rate chart.
func RunReport(from time.Time, days int, chartPath string, list bool) {
	gdb := mustDBFromEnv()

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days)

	var rows []models.Attempt
	if err := gdb.Where("created_at >= ? AND created_at < ?", start, end).Order("id").Find(&rows).Error; err != nil {
		log.Fatalf("fetch attempts failed: %v", err)
	}

	fmt.Printf("Report %s .. %s (UTC): attempts=%d\n", start.Format("2006-01-02"), end.Format("2006-01-02"), len(rows))
	summary := Summarize(rows)
	for _, d := range summary {
		fmt.Printf("  %s total=%d solved=%d rate=%.1f%% mean=%.1fms sd=%.1fms\n",
			d.Day, d.Total, d.Succeeded, d.SuccessRate()*100, d.MeanMs, d.StdDevMs)
		for _, reason := range d.SortedReasons() {
			fmt.Printf("    %s=%d\n", reason, d.Reasons[reason])
		}
	}

	if list {
		for _, r := range rows {
			fmt.Printf("%d|%s|%s|%t|%s|%s\n", r.ID, r.Source, r.FileName, r.Success, r.Digits, r.CreatedAt.Format(time.RFC3339))
		}
	}

	if chartPath != "" {
		f, err := os.Create(chartPath)
		if err != nil {
			log.Fatalf("create chart: %v", err)
		}
		defer f.Close()
		if err := Graph(summary, "Solve rate", f); err != nil {
			log.Printf("WARN chart not written: %v", err)
			return
		}
		log.Printf("chart written to %s", chartPath)
	}
}
