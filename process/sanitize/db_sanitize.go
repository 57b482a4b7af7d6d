package sanitize

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"numcap/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Options select the attempts Prune removes.
type Options struct {
	OlderThan   time.Duration
	FailedOnly  bool
	RemoveFiles bool
}

// Run executes the prune CLI behavior. Exported so a small cmd/main can call it.
func Run() {
	var (
		dryRun      = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes         = flag.Bool("yes", false, "Confirm destructive action (required to actually delete)")
		days        = flag.Int("older-than-days", 30, "Delete attempts created more than this many days ago")
		failedOnly  = flag.Bool("failed-only", false, "Only delete failed attempts")
		removeFiles = flag.Bool("remove-files", false, "Also remove the stored captcha image of each deleted attempt")
	)
	flag.Parse()

	if *days < 1 {
		log.Fatal("-older-than-days must be at least 1")
	}
	gdb := mustInitDBFromEnv()
	opts := Options{
		OlderThan:   time.Duration(*days) * 24 * time.Hour,
		FailedOnly:  *failedOnly,
		RemoveFiles: *removeFiles,
	}

	var cnt int64
	if err := scope(gdb, opts, time.Now()).Count(&cnt).Error; err != nil {
		log.Fatalf("count attempts: %v", err)
	}
	fmt.Printf("Attempts considered for deletion: %d (older than %d days, failed-only=%t)\n", cnt, *days, *failedOnly)
	if cnt == 0 {
		return
	}

	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	deleted, files, err := Prune(ctx, gdb, opts, time.Now())
	if err != nil {
		log.Fatalf("prune failed: %v", err)
	}
	log.Printf("Prune completed: attempts=%d files=%d", deleted, files)
}

func scope(gdb *gorm.DB, opts Options, now time.Time) *gorm.DB {
	q := gdb.Model(&models.Attempt{}).Where("created_at < ?", now.Add(-opts.OlderThan))
	if opts.FailedOnly {
		q = q.Where("success = ?", false)
	}
	return q
}

// Prune deletes matching attempts and, when asked, their stored images once
// the deletion is committed. It reports the number of rows and files removed.
func Prune(ctx context.Context, gdb *gorm.DB, opts Options, now time.Time) (int64, int, error) {
	var deleted int64
	var paths []string
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.RemoveFiles {
			if err := scope(tx, opts, now).Where("store_path <> ''").Pluck("store_path", &paths).Error; err != nil {
				return fmt.Errorf("collect store paths: %w", err)
			}
		}
		res := scope(tx, opts, now).Delete(&models.Attempt{})
		if res.Error != nil {
			return fmt.Errorf("delete attempts: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, removeFiles(paths), nil
}

// removeFiles deletes the slash-separated store paths and counts the files
// actually removed.
func removeFiles(paths []string) int {
	n := 0
	for _, p := range paths {
		if err := os.Remove(filepath.FromSlash(p)); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("WARN remove %s: %v", p, err)
			}
			continue
		}
		n++
	}
	return n
}

// mustInitDBFromEnv is a light DB initializer used by this CLI.
func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}
