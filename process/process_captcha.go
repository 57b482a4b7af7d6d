package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"numcap/models"
	"numcap/pkg/solver"
)

// Global DB handle; nil in dry-run.
var db *gorm.DB

var verbose bool

type runConfig struct {
	dir          string
	processedDir string
	failedDir    string
	dryRun       bool
}

// seenState remembers files already recorded so rescans and watch events stay idempotent.
type seenState struct {
	files map[string]bool
	mu    sync.RWMutex
}

func newSeenState() *seenState {
	return &seenState{files: make(map[string]bool, 1024)}
}

func (s *seenState) has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[name]
}

// claim marks name as taken and reports whether the caller got it first.
func (s *seenState) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files[name] {
		return false
	}
	s.files[name] = true
	return true
}

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

// Main: scans a directory of captcha images, solves each one, records an Attempt and
// files the image under processed/ or failed/. Optional watch mode.
func main() {
	cfg := runConfig{}
	flag.StringVar(&cfg.dir, "dir", "captchas", "directory to scan for captcha images")
	flag.StringVar(&cfg.processedDir, "processed-dir", filepath.Join("captchas", "processed"), "where solved images are moved")
	flag.StringVar(&cfg.failedDir, "failed-dir", filepath.Join("captchas", "failed"), "where unsolved images are moved")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Skip all DB writes and file moves; just print results")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	inspect := flag.Bool("inspect", false, "Print attempt statistics from the database and exit")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	if *inspect {
		if err := runInspectAttempts(os.Getenv("DB_DSN")); err != nil {
			log.Fatalf("inspect failed: %v", err)
		}
		return
	}

	ps := newSeenState()
	if cfg.dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", cfg.dir)
	} else {
		db = mustInitDBFromEnv()
		if err := db.AutoMigrate(&models.Attempt{}); err != nil {
			log.Printf("migration warning (attempts): %v", err)
		}
		preloadSeen(ps)
		log.Printf("Preloaded: attempts=%d", len(ps.files))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := listImageFiles(cfg.dir)
	n := effectiveWorkers(*workers)
	log.Printf("Scanning %d files (workers=%d)", len(files), n)
	runWorkerPool(cfg, ps, feed(files), n)

	if *watch {
		if err := watchDirectory(ctx, cfg, ps, n); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// preloadSeen loads file names of earlier batch attempts to skip them.
func preloadSeen(ps *seenState) {
	var names []string
	if err := db.Model(&models.Attempt{}).Where("source = ?", models.SourceBatch).Pluck("file_name", &names).Error; err != nil {
		log.Printf("WARN preload attempts: %v", err)
		return
	}
	for _, n := range names {
		ps.files[n] = true
	}
}

func feed(names []string) <-chan string {
	ch := make(chan string, len(names))
	for _, n := range names {
		ch <- n
	}
	close(ch)
	return ch
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(ctx context.Context, cfg runConfig, ps *seenState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(cfg.dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", cfg.dir)

	fileCh := make(chan string, 256)
	go func() {
		defer close(fileCh)
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) <= 300*time.Millisecond { // still being written
						continue
					}
					delete(pending, name)
					if ps.has(name) {
						logV("SKIP already recorded %s", name)
						continue
					}
					fileCh <- name
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	runWorkerPool(cfg, ps, fileCh, workers)
	log.Printf("watch stopped")
	return nil
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

// runWorkerPool solves every name received on in with workers goroutines and
// returns once in is closed and drained.
func runWorkerPool(cfg runConfig, ps *seenState, in <-chan string, workers int) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range in {
				processSingleFile(cfg, name, ps)
			}
		}()
	}
	wg.Wait()
}

// processSingleFile solves one image, records the attempt and files the image away.
func processSingleFile(cfg runConfig, name string, ps *seenState) (models.Attempt, bool) {
	if !ps.claim(name) {
		logV("SKIP already recorded %s", name)
		return models.Attempt{}, false
	}
	src := filepath.Join(cfg.dir, name)
	start := time.Now()
	res, err := solver.SolveFile(src)
	a := models.NewAttempt(models.SourceBatch, name, res, err, time.Since(start))

	if cfg.dryRun {
		if err != nil {
			log.Printf("FAIL %s: %v", name, err)
		} else {
			log.Printf("SOLVED %s value=%d", name, res.Value)
		}
		return a, true
	}

	destDir := cfg.processedDir
	if !a.Success {
		destDir = cfg.failedDir
	}
	dst, mvErr := moveTo(src, destDir, name)
	if mvErr != nil {
		log.Printf("WARN failed to move %s: %v", name, mvErr)
		dst = src
	}
	a.StorePath = filepath.ToSlash(dst)

	if db != nil {
		if err := db.Create(&a).Error; err != nil {
			log.Printf("ERROR create attempt %s: %v", name, err)
			return a, true
		}
	}
	if a.Success {
		log.Printf("SOLVED %s value=%d attempt=%d", name, a.Value, a.ID)
	} else {
		log.Printf("FAIL %s reason=%s attempt=%d: %v", name, a.Reason, a.ID, err)
	}
	return a, true
}

// moveTo moves src into dir/name, falling back to copy+remove across devices.
func moveTo(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	return dst, copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
