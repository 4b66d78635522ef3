package extractor

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// ExtractImages writes every media entry of the document to outputDir as
// <n><ext>, numbered from 1 in the archive's own listing order.
func ExtractImages(docPath, outputDir string, opts Options, progressChan chan<- float64) ([]types.ExtractedImage, error) {
	opts = opts.withDefaults()
	return extractImages(docPath, outputDir, opts, newProgress(progressChan, 0, 1))
}

func extractImages(docPath, outputDir string, opts Options, p progress) ([]types.ExtractedImage, error) {
	r, err := zip.OpenReader(docPath)
	if err != nil {
		return nil, &ArchiveOpenError{Path: docPath, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &WriteError{Op: "mkdir", Path: outputDir, Err: err}
	}

	log := opts.Logger.WithField("document", filepath.Base(docPath))
	entries := mediaEntries(&r.Reader, opts.MediaPrefix)
	images := make([]types.ExtractedImage, 0, len(entries))

	for i, entry := range entries {
		data, err := readEntry(entry)
		if err != nil {
			return nil, &ArchiveOpenError{Path: docPath, Entry: entry.Name, Err: err}
		}

		name := SequentialName(i+1, opts.Extension)
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, &WriteError{Op: "write", Path: path, Err: err}
		}

		mtype := mimetype.Detect(data)
		if !mtype.Is("image/jpeg") {
			log.WithFields(logrus.Fields{
				"entry":    entry.Name,
				"detected": mtype.String(),
				"file":     name,
			}).Debug("Media entry is not JPEG, keeping assumed extension")
		}

		images = append(images, types.ExtractedImage{
			Index:        i + 1,
			Name:         name,
			Path:         path,
			Entry:        entry.Name,
			Size:         int64(len(data)),
			DetectedType: mtype.String(),
		})
		log.WithFields(logrus.Fields{"entry": entry.Name, "file": name}).Info("Extracted image")

		p.report(i+1, len(entries))
	}

	return images, nil
}

// SequentialName returns the default output name of the n-th image.
func SequentialName(n int, ext string) string {
	return strconv.Itoa(n) + ext
}

// mediaEntries keeps the archive's listing order; positional matching depends on it.
func mediaEntries(r *zip.Reader, prefix string) []*zip.File {
	var entries []*zip.File
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, prefix) || f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f)
	}
	return entries
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// progress maps one phase onto a slice of the overall [0,1] range and sends
// updates without ever blocking the caller.
type progress struct {
	ch     chan<- float64
	offset float64
	scale  float64
}

func newProgress(ch chan<- float64, offset, scale float64) progress {
	return progress{ch: ch, offset: offset, scale: scale}
}

func (p progress) report(done, total int) {
	if p.ch == nil || total <= 0 {
		return
	}
	select {
	case p.ch <- p.offset + p.scale*float64(done)/float64(total):
	default:
	}
}
