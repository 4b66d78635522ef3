package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nconklindev/sheetpix/internal/config"
	"github.com/nconklindev/sheetpix/internal/extractor"
	"github.com/nconklindev/sheetpix/internal/packager"
	"github.com/nconklindev/sheetpix/internal/storage"
	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/sirupsen/logrus"
)

// ErrNoArchive is returned when publishing is requested with packaging off.
var ErrNoArchive = errors.New("upload requires packaging to be enabled")

// Publisher uploads a finished archive somewhere reachable
type Publisher interface {
	Upload(ctx context.Context, runID, localPath string) (*types.UploadResult, error)
}

// Runner executes one extract-and-rename run at a time against a workspace
type Runner struct {
	config    *config.Config
	logger    *logrus.Logger
	workspace *storage.Manager
	publisher Publisher
}

// New creates a runner. publisher may be nil to skip uploading.
func New(cfg *config.Config, log *logrus.Logger, publisher Publisher) (*Runner, error) {
	if publisher != nil && !cfg.Package.Enabled {
		return nil, ErrNoArchive
	}

	ws, err := storage.NewManager(cfg.Workspace.Root, log)
	if err != nil {
		return nil, err
	}

	return &Runner{
		config:    cfg,
		logger:    log,
		workspace: ws,
		publisher: publisher,
	}, nil
}

// Publishes reports whether runs upload their archive
func (r *Runner) Publishes() bool {
	return r.publisher != nil
}

// Options returns the extractor options derived from the config
func (r *Runner) Options() extractor.Options {
	return extractor.Options{
		MediaPrefix: r.config.Extract.MediaPrefix,
		Extension:   r.config.Extract.Extension,
		NameColumn:  r.config.Extract.NameColumn,
		Logger:      r.logger,
	}
}

// Run extracts and renames the document's images into a fresh output
// directory, then packages and publishes them when configured. A failed run
// leaves no output behind.
func (r *Runner) Run(ctx context.Context, docPath string, progressChan chan<- float64) (result *types.RunResult, err error) {
	startTime := time.Now()

	if r.publisher != nil && !r.config.Package.Enabled {
		return nil, ErrNoArchive
	}

	lease, err := r.workspace.Acquire(r.config.Workspace.ImagesDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := lease.Release(err); relErr != nil {
			r.logger.WithError(relErr).Warn("Failed to release workspace")
			if err == nil {
				result, err = nil, relErr
			}
		}
	}()

	log := r.logger.WithFields(logrus.Fields{
		"run_id":   lease.ID,
		"document": docPath,
	})
	log.Info("Run started")

	var archivePath string
	if name := r.config.Package.ArchiveName; name != "" {
		if archivePath, err = lease.Track(name); err != nil {
			return nil, err
		}
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	match, err := extractor.RenameImages(docPath, lease.Dir(), r.Options(), progressChan)
	if err != nil {
		return nil, err
	}

	files, err := listOutput(lease.Dir())
	if err != nil {
		return nil, err
	}

	result = &types.RunResult{
		RunID:     lease.ID,
		Document:  docPath,
		OutputDir: lease.Dir(),
		Match:     match,
		Files:     files,
	}

	if r.config.Package.Enabled {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		result.Archive, err = packager.Zip(lease.Dir(), archivePath)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"archive": result.Archive.Path,
			"files":   result.Archive.Files,
			"size":    result.Archive.Size,
		}).Info("Packaged output")
	}

	if r.publisher != nil {
		result.Upload, err = r.publisher.Upload(ctx, lease.ID, result.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to publish archive: %w", err)
		}
	}

	result.Duration = time.Since(startTime)
	log.WithFields(logrus.Fields{
		"images":   len(match.Images),
		"renamed":  len(match.Renamed),
		"skipped":  len(match.Skipped),
		"duration": result.Duration.String(),
	}).Info("Run completed")

	return result, nil
}

// listOutput returns the regular files of dir in name order
func listOutput(dir string) ([]types.OutputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]types.OutputFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		files = append(files, types.OutputFile{Name: entry.Name(), Size: info.Size()})
	}
	return files, nil
}
