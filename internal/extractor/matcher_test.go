package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameImages_BlankNameKeepsSequentialName(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("Alpha", "", "Gamma"), numberedMedia(3))
	outDir := filepath.Join(tmpDir, "out")

	result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Alpha.jpeg", "2.jpeg", "Gamma.jpeg"}, listDir(t, outDir))
	assert.Equal(t, jpegBytes("image-1"), readFile(t, filepath.Join(outDir, "Alpha.jpeg")))
	assert.Equal(t, jpegBytes("image-2"), readFile(t, filepath.Join(outDir, "2.jpeg")))
	assert.Equal(t, jpegBytes("image-3"), readFile(t, filepath.Join(outDir, "Gamma.jpeg")))

	assert.Len(t, result.Images, 3)
	assert.Equal(t, []types.Rename{
		{Index: 1, From: "1.jpeg", To: "Alpha.jpeg"},
		{Index: 3, From: "3.jpeg", To: "Gamma.jpeg"},
	}, result.Renamed)
	assert.Equal(t, []types.Skip{{Row: 1, Reason: types.SkipMissingName}}, result.Skipped)
}

func TestRenameImages_MoreRowsThanImages(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("One", "Two", "Three", "Four", "Five"), numberedMedia(2))
	outDir := filepath.Join(tmpDir, "out")

	result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"One.jpeg", "Two.jpeg"}, listDir(t, outDir))
	assert.Len(t, result.Renamed, 2)
	require.Len(t, result.Skipped, 3)
	for i, skip := range result.Skipped {
		assert.Equal(t, i+2, skip.Row)
		assert.Equal(t, types.SkipNoSource, skip.Reason)
	}
}

func TestRenameImages_MoreImagesThanRows(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("Only"), numberedMedia(3))
	outDir := filepath.Join(tmpDir, "out")

	_, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Only.jpeg", "2.jpeg", "3.jpeg"}, listDir(t, outDir))
}

func TestRenameImages_NoMedia(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("Alpha", "Beta"), nil)
	outDir := filepath.Join(tmpDir, "out")

	result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.DirExists(t, outDir)
	assert.Empty(t, listDir(t, outDir))
	assert.Empty(t, result.Images)
	assert.Empty(t, result.Renamed)
}

func TestRenameImages_DuplicateNamesLastWins(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("Same", "Same"), numberedMedia(2))
	outDir := filepath.Join(tmpDir, "out")

	result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Same.jpeg"}, listDir(t, outDir))
	assert.Equal(t, jpegBytes("image-2"), readFile(t, filepath.Join(outDir, "Same.jpeg")))
	assert.Len(t, result.Renamed, 2)
}

func TestRenameImages_OutputCountMatchesMediaEntries(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		tmpDir := t.TempDir()
		doc := buildDocument(t, tmpDir, nameRows("a", "b", "c"), numberedMedia(n))
		outDir := filepath.Join(tmpDir, "out")

		result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
		require.NoError(t, err)
		assert.Len(t, result.Images, n)
		assert.Len(t, listDir(t, outDir), n)
	}
}

func TestRenameImages_RenamedSourcesAreGone(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("Alpha", "Beta"), numberedMedia(2))
	outDir := filepath.Join(tmpDir, "out")

	result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	for _, r := range result.Renamed {
		assert.FileExists(t, filepath.Join(outDir, r.To))
		assert.NoFileExists(t, filepath.Join(outDir, r.From))
	}
}

func TestApplyNames_SecondPassIsNotIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("Alpha", "", "Gamma"), numberedMedia(3))
	outDir := filepath.Join(tmpDir, "out")

	_, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	sheet, err := ReadSheet(doc, DefaultOptions())
	require.NoError(t, err)

	second, err := ApplyNames(sheet, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Empty(t, second.Renamed)
	assert.Equal(t, []types.Skip{
		{Row: 0, Reason: types.SkipNoSource, Detail: "1.jpeg"},
		{Row: 1, Reason: types.SkipMissingName},
		{Row: 2, Reason: types.SkipNoSource, Detail: "3.jpeg"},
	}, second.Skipped)
	assert.ElementsMatch(t, []string{"Alpha.jpeg", "2.jpeg", "Gamma.jpeg"}, listDir(t, outDir))
}

func TestRenameImages_MissingNameColumn(t *testing.T) {
	tmpDir := t.TempDir()
	rows := [][]any{{"Title", "Notes"}, {"Alpha", "x"}, {"Beta", "y"}}
	doc := buildDocument(t, tmpDir, rows, numberedMedia(2))
	outDir := filepath.Join(tmpDir, "out")

	result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"1.jpeg", "2.jpeg"}, listDir(t, outDir))
	require.Len(t, result.Skipped, 2)
	for _, skip := range result.Skipped {
		assert.Equal(t, types.SkipMissingName, skip.Reason)
	}
}

func TestRenameImages_CustomNameColumn(t *testing.T) {
	tmpDir := t.TempDir()
	rows := [][]any{{"SKU", "Name"}, {"sku-1", "ignored"}, {"sku-2", "ignored too"}}
	doc := buildDocument(t, tmpDir, rows, numberedMedia(2))
	outDir := filepath.Join(tmpDir, "out")

	opts := DefaultOptions()
	opts.NameColumn = "SKU"

	_, err := RenameImages(doc, outDir, opts, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sku-1.jpeg", "sku-2.jpeg"}, listDir(t, outDir))
}

func TestRenameImages_NameEdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		rowName    string
		wantFiles  []string
		wantReason types.SkipReason
	}{
		{"Whitespace only", "   ", []string{"1.jpeg"}, types.SkipMissingName},
		{"Surrounding spaces trimmed", "  Alpha  ", []string{"Alpha.jpeg"}, ""},
		{"Path separator", "../escape", []string{"1.jpeg"}, types.SkipUnsafeName},
		{"Backslash", `dir\file`, []string{"1.jpeg"}, types.SkipUnsafeName},
		{"Dot dot", "..", []string{"1.jpeg"}, types.SkipUnsafeName},
		{"Unicode", "Café Ω", []string{"Café Ω.jpeg"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			doc := buildDocument(t, tmpDir, nameRows(tt.rowName), numberedMedia(1))
			outDir := filepath.Join(tmpDir, "out")

			result, err := RenameImages(doc, outDir, DefaultOptions(), nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantFiles, listDir(t, outDir))

			if tt.wantReason == "" {
				assert.Empty(t, result.Skipped)
				return
			}
			require.Len(t, result.Skipped, 1)
			assert.Equal(t, tt.wantReason, result.Skipped[0].Reason)
		})
	}
}

func TestRenameImages_NotAnArchive(t *testing.T) {
	tmpDir := t.TempDir()
	doc := filepath.Join(tmpDir, "book.xlsx")
	require.NoError(t, os.WriteFile(doc, []byte("not a spreadsheet"), 0644))
	outDir := filepath.Join(tmpDir, "out")

	_, err := RenameImages(doc, outDir, DefaultOptions(), nil)
	require.Error(t, err)
	assert.NoDirExists(t, outDir)
}

func TestRenameImages_ReportsProgressToCompletion(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("a", "b"), numberedMedia(2))
	progressChan := make(chan float64, 10)

	_, err := RenameImages(doc, filepath.Join(tmpDir, "out"), DefaultOptions(), progressChan)
	require.NoError(t, err)
	close(progressChan)

	var got []float64
	for p := range progressChan {
		got = append(got, p)
	}
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, got)
}

func TestInspect(t *testing.T) {
	tmpDir := t.TempDir()
	doc := buildDocument(t, tmpDir, nameRows("A", "", "C", "D", "E", "F", "G"), numberedMedia(4))

	preview, err := Inspect(doc, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, doc, preview.Document)
	assert.Equal(t, "Sheet1", preview.SheetName)
	assert.Equal(t, 4, preview.MediaEntries)
	assert.Equal(t, 7, preview.DataRows)
	assert.True(t, preview.HasNameColumn)
	assert.Equal(t, []string{"A", "C", "D", "E", "F"}, preview.SampleNames)

	// Inspect never writes
	assert.Equal(t, []string{"book.xlsx"}, listDir(t, tmpDir))
}
