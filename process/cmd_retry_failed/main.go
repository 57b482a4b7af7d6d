package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"numcap/models"
	"numcap/pkg/solver"

	_ "github.com/lib/pq"
)

func main() {
	reason := flag.String("reason", "", "only retry attempts that failed with this reason (empty: all)")
	dir := flag.String("dir", filepath.Join("captchas", "failed"), "fallback dir for attempts without store_path")
	limit := flag.Int("limit", 500, "maximum attempts to retry")
	dryRun := flag.Bool("dry-run", false, "solve again but do not update rows")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, file_name, store_path FROM attempts WHERE success = false AND ($1::text = '' OR reason = $1::text) ORDER BY id LIMIT $2`, *reason, *limit)
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var fixed, still int
	for rows.Next() {
		var id int64
		var fname string
		var store sql.NullString
		if err := rows.Scan(&id, &fname, &store); err != nil {
			log.Printf("scan: %v", err)
			continue
		}
		path := resolvePath(store, *dir, fname)
		if _, err := os.Stat(path); err != nil {
			log.Printf("skip id=%d: %v", id, err)
			continue
		}

		start := time.Now()
		res, solveErr := solver.SolveFile(path)
		a := models.NewAttempt(models.SourceBatch, fname, res, solveErr, time.Since(start))
		if !a.Success {
			still++
			log.Printf("still failing id=%d file=%s reason=%s", id, fname, a.Reason)
		}
		if *dryRun {
			if a.Success {
				fmt.Printf("would update id=%d file=%s value=%d\n", id, fname, a.Value)
			}
			continue
		}

		var sig sql.NullInt64
		if a.Signature != nil {
			sig = sql.NullInt64{Int64: *a.Signature, Valid: true}
		}
		if _, err := db.Exec(`UPDATE attempts SET success=$1, value=$2, digits=$3, reason=$4, signature=$5, updated_at=now() WHERE id=$6`,
			a.Success, a.Value, a.Digits, a.Reason, sig, id); err != nil {
			log.Printf("update id=%d: %v", id, err)
			continue
		}
		if a.Success {
			fixed++
			fmt.Printf("updated id=%d file=%s value=%d\n", id, fname, a.Value)
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("rows: %v", err)
	}
	log.Printf("retry done: fixed=%d still_failing=%d", fixed, still)
}

// resolvePath prefers the recorded store path and falls back to dir/fname.
func resolvePath(store sql.NullString, dir, fname string) string {
	if store.Valid && store.String != "" {
		return filepath.FromSlash(store.String)
	}
	return filepath.Join(dir, fname)
}
