package extractor

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMediaPrefix is the archive folder that holds embedded images in an xlsx package.
	DefaultMediaPrefix = "xl/media/"
	DefaultExtension   = ".jpeg"
	DefaultNameColumn  = "Name"
)

// Options configures extraction and matching.
type Options struct {
	// MediaPrefix selects the archive entries treated as embedded images.
	MediaPrefix string
	// Extension is appended to every output file name. The image format is never inspected to choose it.
	Extension string
	// NameColumn is the header whose values become file names.
	NameColumn string
	Logger     *logrus.Logger
}

// DefaultOptions returns options matching a standard xlsx workbook.
func DefaultOptions() Options {
	return Options{
		MediaPrefix: DefaultMediaPrefix,
		Extension:   DefaultExtension,
		NameColumn:  DefaultNameColumn,
	}
}

func (o Options) withDefaults() Options {
	if o.MediaPrefix == "" {
		o.MediaPrefix = DefaultMediaPrefix
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if o.NameColumn == "" {
		o.NameColumn = DefaultNameColumn
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetOutput(io.Discard)
	}
	return o
}
