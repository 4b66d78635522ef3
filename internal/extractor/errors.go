package extractor

import (
	"errors"
	"fmt"
)

// ErrNoWorksheet indicates the workbook has no sheet to read rows from.
var ErrNoWorksheet = errors.New("workbook has no worksheets")

// ArchiveOpenError indicates the document is not a readable zip container.
type ArchiveOpenError struct {
	Path  string
	Entry string
	Err   error
}

func (e *ArchiveOpenError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("archive error in %s (entry %s): %v", e.Path, e.Entry, e.Err)
	}
	return fmt.Sprintf("cannot open %s as an archive: %v", e.Path, e.Err)
}

func (e *ArchiveOpenError) Unwrap() error {
	return e.Err
}

// TabularReadError indicates the first worksheet could not be parsed.
type TabularReadError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *TabularReadError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("cannot read sheet %q of %s: %v", e.Sheet, e.Path, e.Err)
	}
	return fmt.Sprintf("cannot read worksheet data of %s: %v", e.Path, e.Err)
}

func (e *TabularReadError) Unwrap() error {
	return e.Err
}

// WriteError indicates a file system operation on the output directory failed.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
