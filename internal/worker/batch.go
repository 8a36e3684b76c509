package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/dossier/internal/model"
)

// Analyzer produces a report from a self-contained snapshot
type Analyzer interface {
	AnalyzeSnapshot(ctx context.Context, snap model.Snapshot) (*model.Report, error)
}

// SnapshotJob analyses one snapshot file
type SnapshotJob struct {
	Path     string
	Analyzer Analyzer
}

// Execute reads the snapshot and analyses it
func (j *SnapshotJob) Execute(ctx context.Context) Result {
	snap, err := ReadSnapshot(j.Path)
	if err != nil {
		return &SnapshotResult{Path: j.Path, Error: err}
	}
	report, err := j.Analyzer.AnalyzeSnapshot(ctx, *snap)
	return &SnapshotResult{Path: j.Path, ApplicationID: snap.ApplicationID, Report: report, Error: err}
}

// SnapshotResult represents the result of a snapshot job
type SnapshotResult struct {
	Path          string
	ApplicationID string
	Report        *model.Report
	Error         error
}

// GetError returns the error from the snapshot result
func (r *SnapshotResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses many snapshots concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessFiles analyses snapshot files; results follow the order of paths
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*SnapshotResult {
	if len(paths) == 0 {
		return []*SnapshotResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&SnapshotJob{Path: path, Analyzer: b.analyzer})
	}

	results := pool.Wait()

	out := make([]*SnapshotResult, len(paths))
	for i := range paths {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*SnapshotResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("not processed")
		}
		out[i] = &SnapshotResult{Path: paths[i], Error: err}
	}
	return out
}

// ReadSnapshot decodes a YAML or JSON snapshot file
func ReadSnapshot(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.ApplicationID == "" {
		return nil, fmt.Errorf("snapshot %s: application_id is required", path)
	}
	for i := range snap.Facts {
		if err := model.CheckConfidence(snap.Facts[i].Confidence); err != nil {
			return nil, fmt.Errorf("snapshot %s: fact %d (%s): %w", path, i, snap.Facts[i].FactID, err)
		}
		if snap.Facts[i].ApplicationID == "" {
			snap.Facts[i].ApplicationID = snap.ApplicationID
		}
	}
	return &snap, nil
}

// CollectSnapshotPaths expands arguments into snapshot files. Directories
// contribute their *.yaml, *.yml and *.json files; a *.txt file is a list of
// paths, one per line, with # comments. Duplicates are dropped.
func CollectSnapshotPaths(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		switch {
		case info.IsDir():
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("read dir %s: %w", arg, err)
			}
			var found []string
			for _, e := range entries {
				if !e.IsDir() && isSnapshotFile(e.Name()) {
					found = append(found, filepath.Join(arg, e.Name()))
				}
			}
			sort.Strings(found)
			for _, p := range found {
				add(p)
			}
		case strings.HasSuffix(arg, ".txt"):
			listed, err := ReadPathList(arg)
			if err != nil {
				return nil, err
			}
			for _, p := range listed {
				add(p)
			}
		default:
			add(arg)
		}
	}
	return paths, nil
}

// ReadPathList reads file paths from a list file (one per line)
func ReadPathList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

func isSnapshotFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
