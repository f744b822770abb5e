package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractZipBasic(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"widget.jpg": []byte("jpeg-bytes"),
		"gadget.PNG": []byte("png-bytes"),
	})

	e := NewExtractor(0, 0)
	result := e.ExtractZip(data)

	require.True(t, result.IsValid)
	require.Len(t, result.Files, 2)
	assert.Equal(t, "widget.jpg", result.Files["widget.jpg"].Filename)
	// Keys are lower-cased, original case is preserved on the entry.
	assert.Equal(t, "gadget.PNG", result.Files["gadget.png"].Filename)
	assert.Equal(t, "image/png", result.Files["gadget.png"].MimeType)
	assert.Equal(t, int64(len("jpeg-bytes")+len("png-bytes")), result.TotalSize)
}

func TestExtractZipFlattensAndFilters(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"photos/nested/widget.jpg": []byte("img"),
		"windows\\style\\pic.png":  []byte("img"),
		"__MACOSX/._widget.jpg":    []byte("junk"),
		".hidden.jpg":              []byte("junk"),
		"notes.txt":                []byte("junk"),
		"animation.gif":            []byte("junk"), // mapped for MIME, not accepted
	})

	e := NewExtractor(0, 0)
	result := e.ExtractZip(data)

	require.True(t, result.IsValid)
	require.Len(t, result.Files, 2)
	assert.Contains(t, result.Files, "widget.jpg")
	assert.Contains(t, result.Files, "pic.png")
}

func TestExtractZipArchiveTooLargeAborts(t *testing.T) {
	data := buildZip(t, map[string][]byte{"widget.jpg": []byte("img")})

	e := NewExtractor(10, 5*1024*1024) // cap below the archive size
	result := e.ExtractZip(data)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "archive exceeds")
	assert.Empty(t, result.Files)
}

func TestExtractZipOversizedFileSkippedOthersExtract(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"big.jpg":   bytes.Repeat([]byte("x"), 2048),
		"small.jpg": []byte("img"),
	})

	e := NewExtractor(50*1024*1024, 1024)
	result := e.ExtractZip(data)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "big.jpg")
	require.Len(t, result.Files, 1)
	assert.Contains(t, result.Files, "small.jpg")
}

func TestExtractZipInvalidArchive(t *testing.T) {
	e := NewExtractor(0, 0)
	result := e.ExtractZip([]byte("not a zip"))

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "invalid ZIP archive")
}

func TestListFiles(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"photos/Widget.JPG": []byte("img"),
		"gadget.png":        []byte("img"),
		"readme.md":         []byte("junk"),
	})

	e := NewExtractor(0, 0)
	names, err := e.ListFiles(data)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"widget.jpg", "gadget.png"}, names)
}

func TestExtractFilesSubset(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"a.jpg": []byte("aaa"),
		"b.jpg": []byte("bbb"),
		"c.jpg": []byte("ccc"),
	})

	e := NewExtractor(0, 0)
	files, fileErrs, err := e.ExtractFiles(data, []string{"A.JPG", "c.jpg"})

	require.NoError(t, err)
	assert.Empty(t, fileErrs)
	require.Len(t, files, 2)
	assert.Equal(t, []byte("aaa"), files["a.jpg"].Data)
	assert.Equal(t, []byte("ccc"), files["c.jpg"].Data)
}

func TestExtractFilesReportsPerFileErrors(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"big.jpg": bytes.Repeat([]byte("x"), 2048),
		"ok.jpg":  []byte("img"),
	})

	e := NewExtractor(0, 1024)
	files, fileErrs, err := e.ExtractFiles(data, []string{"big.jpg", "ok.jpg"})

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files, "ok.jpg")
	require.Len(t, fileErrs, 1)
	assert.Contains(t, fileErrs["big.jpg"].Error(), "exceeds")
}

func TestIsAllowedImage(t *testing.T) {
	assert.True(t, IsAllowedImage("photo.jpg"))
	assert.True(t, IsAllowedImage("PHOTO.JPEG"))
	assert.True(t, IsAllowedImage("pic.webp"))
	assert.False(t, IsAllowedImage("anim.gif"))
	assert.False(t, IsAllowedImage("doc.pdf"))
	assert.False(t, IsAllowedImage("noext"))
}

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeTypeFor("a.JPG"))
	assert.Equal(t, "image/webp", MimeTypeFor("a.webp"))
	assert.Equal(t, "application/octet-stream", MimeTypeFor("a.bin"))
}
