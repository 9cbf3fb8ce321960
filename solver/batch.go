package solver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

type BatchOptions struct {
	Workers int
	// Timeout bounds a single extraction; zero means no limit.
	Timeout time.Duration
	Options []Option
}

type BatchResult struct {
	File string
	Hash float64
	Err  error
	// Expected is parsed from a numeric file stem such as 9975588.js.
	Expected    float64
	HasExpected bool
}

func (r BatchResult) Passed() bool {
	return r.Err == nil && r.HasExpected && r.Hash == r.Expected
}

// Batch computes the hash of every file with at most Workers extractions in
// flight. Every extraction owns its sandbox; one failing bundle does not
// stop the others. Results keep the order of files.
func Batch(ctx context.Context, files []string, opts BatchOptions) []BatchResult {
	results := make([]BatchResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, file := range files {
		g.Go(func() error {
			res := BatchResult{File: file}
			res.Expected, res.HasExpected = ExpectedFromName(file)
			res.Hash, res.Err = hashFile(ctx, file, opts)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func hashFile(ctx context.Context, file string, opts BatchOptions) (float64, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read bundle: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	return FileHash(ctx, string(src), opts.Options...)
}

// ExpectedFromName returns the numeric stem of path, if any.
func ExpectedFromName(path string) (float64, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, err := strconv.ParseFloat(stem, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CollectFiles walks root and returns the regular files whose base name
// matches pattern, sorted. A file root is returned as is.
func CollectFiles(root, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && g.Match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
