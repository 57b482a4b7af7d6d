package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// runInspectAttempts connects to Postgres using dsn and prints failure reasons
// and the most frequent unrecognized signatures, the candidates for new table entries.
func runInspectAttempts(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("dsn is required")
	}
	sdb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sdb.Close()

	rows, err := sdb.Query(`
		SELECT COALESCE(NULLIF(reason, ''), 'ok') AS reason, source, count(*) AS n
		FROM attempts
		GROUP BY 1, 2
		ORDER BY n DESC;
	`)
	if err != nil {
		return fmt.Errorf("query reasons: %w", err)
	}
	fmt.Println("Attempts by outcome:")
	for rows.Next() {
		var reason, source string
		var n int64
		if err := rows.Scan(&reason, &source, &n); err != nil {
			rows.Close()
			return fmt.Errorf("scan: %w", err)
		}
		fmt.Printf("- %-24s %-6s %d\n", reason, source, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rows err: %w", err)
	}
	rows.Close()

	sigRows, err := sdb.Query(`
		SELECT signature, count(*) AS n, max(file_name) AS example
		FROM attempts
		WHERE signature IS NOT NULL
		GROUP BY signature
		ORDER BY n DESC
		LIMIT 20;
	`)
	if err != nil {
		return fmt.Errorf("query signatures: %w", err)
	}
	defer sigRows.Close()

	fmt.Println("Unrecognized signatures:")
	for sigRows.Next() {
		var sig, n int64
		var example sql.NullString
		if err := sigRows.Scan(&sig, &n, &example); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		fmt.Printf("- %d seen %d times (e.g. %s)\n", sig, n, nullStringToStr(example))
	}
	if err := sigRows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	return nil
}

func nullStringToStr(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
