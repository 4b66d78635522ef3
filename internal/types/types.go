package types

import "time"

// ExtractedImage is one media entry written to the output directory.
type ExtractedImage struct {
	Index        int
	Name         string
	Path         string
	Entry        string
	Size         int64
	DetectedType string
}

type DataRow struct {
	Index  int
	Fields map[string]string
}

type SheetData struct {
	SheetName string
	Headers   []string
	Rows      []DataRow
}

type SkipReason string

const (
	SkipMissingName SkipReason = "missing_name"
	SkipNoSource    SkipReason = "no_source"
	SkipUnsafeName  SkipReason = "unsafe_name"
)

type Skip struct {
	Row    int
	Reason SkipReason
	Detail string
}

type Rename struct {
	Index int
	From  string
	To    string
}

type MatchResult struct {
	Images  []ExtractedImage
	Renamed []Rename
	Skipped []Skip
}

// Preview summarises a document without writing anything.
type Preview struct {
	Document      string
	SheetName     string
	Headers       []string
	MediaEntries  int
	DataRows      int
	HasNameColumn bool
	SampleNames   []string
}

type OutputFile struct {
	Name string
	Size int64
}

type ArchiveInfo struct {
	Path  string
	Size  int64
	Files int
}

type UploadResult struct {
	ObjectKey  string
	SignedURL  string
	Size       int64
	UploadTime time.Duration
}

type RunResult struct {
	RunID     string
	Document  string
	OutputDir string
	Match     *MatchResult
	Files     []OutputFile
	Archive   *ArchiveInfo
	Upload    *UploadResult
	Duration  time.Duration
}
