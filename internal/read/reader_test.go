package read

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPlainText(t *testing.T) {
	res, err := Read("notes.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, "txt", res.FileType)
}

func TestReadHTML(t *testing.T) {
	html := []byte(`<html><head><style>.a{}</style></head><body><p>Hello</p><script>evil()</script><p>World</p></body></html>`)
	res, err := Read("page.html", html)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Hello")
	assert.Contains(t, res.Text, "World")
	assert.NotContains(t, res.Text, "evil")
}

func TestReadCSV(t *testing.T) {
	csv := []byte("a,b,c\n1,2,3\n4,5,6\n")
	res, err := Read("data.csv", csv)
	require.NoError(t, err)
	assert.Equal(t, "3", res.Metadata["row_count"])
	assert.Contains(t, res.Text, "1 | 2 | 3")
}

func TestReadXML(t *testing.T) {
	xml := []byte(`<root><title>Doc</title><body>Content here</body></root>`)
	res, err := Read("data.xml", xml)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Doc")
	assert.Contains(t, res.Text, "Content here")
}

func TestUnsupportedExtension(t *testing.T) {
	_, err := Read("binary.exe", []byte{0x00, 0x01})
	assert.Error(t, err)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("md"))
	assert.True(t, IsSupported("pdf"))
	assert.False(t, IsSupported("exe"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "md", Extension("/a/b/README.MD"))
	assert.Equal(t, "", Extension("/a/b/noext"))
}
