package crawl

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Local walks dir and returns the matching files, sorted by path.
// Excluded directories are not descended into. Unreadable and binary files
// are skipped with a log line.
func Local(ctx context.Context, dir string, opts Options) ([]File, Stats, error) {
	var stats Stats
	info, err := os.Stat(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("crawl %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("crawl %s: not a directory", dir)
	}

	m := NewMatcher(opts)
	var files []File
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			log.Printf("[Crawl] Warning: %v", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.Excluded(rel) || m.Excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !m.Wants(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			log.Printf("[Crawl] Warning: stat %s: %v", rel, err)
			return nil
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			stats.Skipped = append(stats.Skipped, Skipped{Path: rel, Size: fi.Size()})
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[Crawl] Warning: could not read %s: %v", rel, err)
			return nil
		}
		content, ok := decodeText(data)
		if !ok {
			log.Printf("[Crawl] Skipping non-text file %s", rel)
			return nil
		}
		files = append(files, File{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	sortFiles(files)
	stats.Downloaded = len(files)
	return files, stats, nil
}
