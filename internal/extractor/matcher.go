package extractor

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/sirupsen/logrus"
)

// PreviewSampleLimit caps the names reported by Inspect.
const PreviewSampleLimit = 5

// RenameImages extracts the document's images into outputDir and renames the
// image at position i+1 after the name in data row i.
func RenameImages(docPath, outputDir string, opts Options, progressChan chan<- float64) (*types.MatchResult, error) {
	opts = opts.withDefaults()

	sheet, err := ReadSheet(docPath, opts)
	if err != nil {
		return nil, err
	}

	images, err := extractImages(docPath, outputDir, opts, newProgress(progressChan, 0, 0.5))
	if err != nil {
		return nil, err
	}

	result, err := applyNames(sheet, outputDir, opts, newProgress(progressChan, 0.5, 0.5))
	if err != nil {
		return nil, err
	}
	result.Images = images
	return result, nil
}

// ApplyNames runs only the renaming pass over an already extracted directory.
//
// Rows without a name and rows past the last image are skipped. Two rows with
// the same name overwrite each other, so the later image survives. The pass is
// not idempotent: over a directory it already renamed, the sequential sources
// are gone and every named row is skipped.
func ApplyNames(sheet *types.SheetData, outputDir string, opts Options, progressChan chan<- float64) (*types.MatchResult, error) {
	return applyNames(sheet, outputDir, opts.withDefaults(), newProgress(progressChan, 0, 1))
}

func applyNames(sheet *types.SheetData, outputDir string, opts Options, p progress) (*types.MatchResult, error) {
	log := opts.Logger.WithField("sheet", sheet.SheetName)
	if len(sheet.Rows) > 0 && !hasColumn(sheet.Headers, opts.NameColumn) {
		log.WithField("column", opts.NameColumn).Warn("Name column not found in header row, images keep sequential names")
	}

	result := &types.MatchResult{}
	for i, row := range sheet.Rows {
		p.report(i+1, len(sheet.Rows))
		rowLog := log.WithField("row", row.Index)

		name := rowName(row, opts.NameColumn)
		if name == "" {
			result.Skipped = append(result.Skipped, types.Skip{Row: row.Index, Reason: types.SkipMissingName})
			rowLog.Info("Row has no name, keeping sequential file name")
			continue
		}
		if !safeName(name) {
			result.Skipped = append(result.Skipped, types.Skip{Row: row.Index, Reason: types.SkipUnsafeName, Detail: name})
			rowLog.WithField("name", name).Warn("Name would leave the output directory, skipping")
			continue
		}

		from := SequentialName(row.Index+1, opts.Extension)
		to := name + opts.Extension
		fromPath := filepath.Join(outputDir, from)

		if _, err := os.Stat(fromPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				result.Skipped = append(result.Skipped, types.Skip{Row: row.Index, Reason: types.SkipNoSource, Detail: from})
				rowLog.WithField("source", from).Info("No image for row, skipping")
				continue
			}
			return nil, &WriteError{Op: "stat", Path: fromPath, Err: err}
		}

		if err := os.Rename(fromPath, filepath.Join(outputDir, to)); err != nil {
			return nil, &WriteError{Op: "rename", Path: fromPath, Err: err}
		}
		result.Renamed = append(result.Renamed, types.Rename{Index: row.Index + 1, From: from, To: to})
		rowLog.WithFields(logrus.Fields{"from": from, "to": to}).Info("Renamed image")
	}

	return result, nil
}

// Inspect reports what a run would see without writing any files.
func Inspect(docPath string, opts Options) (*types.Preview, error) {
	opts = opts.withDefaults()

	r, err := zip.OpenReader(docPath)
	if err != nil {
		return nil, &ArchiveOpenError{Path: docPath, Err: err}
	}
	mediaCount := len(mediaEntries(&r.Reader, opts.MediaPrefix))
	r.Close()

	sheet, err := ReadSheet(docPath, opts)
	if err != nil {
		return nil, err
	}

	preview := &types.Preview{
		Document:      docPath,
		SheetName:     sheet.SheetName,
		Headers:       sheet.Headers,
		MediaEntries:  mediaCount,
		DataRows:      len(sheet.Rows),
		HasNameColumn: hasColumn(sheet.Headers, opts.NameColumn),
	}
	for _, row := range sheet.Rows {
		if len(preview.SampleNames) >= PreviewSampleLimit {
			break
		}
		if name := rowName(row, opts.NameColumn); name != "" {
			preview.SampleNames = append(preview.SampleNames, name)
		}
	}

	return preview, nil
}

func safeName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
