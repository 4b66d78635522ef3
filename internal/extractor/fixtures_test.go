package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mediaEntry struct {
	name string
	data []byte
}

// jpegBytes returns a small payload that sniffs as JPEG and is unique per label.
func jpegBytes(label string) []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, []byte(label)...)
}

func pngBytes(label string) []byte {
	return append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte(label)...)
}

// numberedMedia returns n JPEG entries named image1..imageN in order.
func numberedMedia(n int) []mediaEntry {
	media := make([]mediaEntry, 0, n)
	for i := 1; i <= n; i++ {
		media = append(media, mediaEntry{
			name: fmt.Sprintf("xl/media/image%d.jpeg", i),
			data: jpegBytes(fmt.Sprintf("image-%d", i)),
		})
	}
	return media
}

// nameRows builds a sheet with a Name column and a Notes column so rows with
// a blank name still carry data.
func nameRows(names ...string) [][]any {
	rows := [][]any{{"Name", "Notes"}}
	for i, name := range names {
		rows = append(rows, []any{name, fmt.Sprintf("row %d", i+1)})
	}
	return rows
}

// buildDocument writes an xlsx whose first sheet holds rows and whose
// xl/media/ entries appear in exactly the given order.
func buildDocument(t *testing.T, dir string, rows [][]any, media []mediaEntry) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			t.Logf("Warning: failed to close workbook: %v", err)
		}
	}()

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	path := filepath.Join(dir, "book.xlsx")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, zf := range zr.File {
		if strings.HasPrefix(zf.Name, DefaultMediaPrefix) {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: zf.Name, Method: zip.Deflate})
		require.NoError(t, err)
		rc, err := zf.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		rc.Close()
		require.NoError(t, err)
	}
	for _, m := range media {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func rowWith(fields map[string]string) types.DataRow {
	return types.DataRow{Fields: fields}
}
