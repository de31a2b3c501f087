package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

func TestExtractPlainFile(t *testing.T) {
	r := NewRegistry()
	text, err := r.Extract(context.Background(), &model.IngestItem{
		Type:     model.SourceTypeFile,
		FileName: "notes.txt",
		FileType: "txt",
		Data:     []byte("  hello world  "),
	})
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestExtractMarkdownFile(t *testing.T) {
	r := NewRegistry()
	md := "# Title\n\nSome *emphasized* body text.\n\n```go\nfmt.Println(\"x\")\n```\n"
	text, err := r.Extract(context.Background(), &model.IngestItem{
		Type:     model.SourceTypeFile,
		FileName: "doc.md",
		FileType: "md",
		Data:     []byte(md),
	})
	require.NoError(t, err)
	require.Contains(t, text, "Title")
	require.Contains(t, text, "emphasized")
	require.Contains(t, text, "fmt.Println")
	require.NotContains(t, text, "#")
}

func TestExtractEmptyFileIsNoContent(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), &model.IngestItem{
		Type:     model.SourceTypeFile,
		FileName: "empty.txt",
		FileType: "txt",
		Data:     []byte("   \n\t  "),
	})
	require.ErrorIs(t, err, appErr.ErrNoContent)
}

func TestStripHTML(t *testing.T) {
	page := `<html><head><style>p{color:red}</style><script>var x=1;</script></head>
<body><h1>Heading</h1><p>First &amp; second.</p></body></html>`
	text := stripHTML(page)
	require.Contains(t, text, "Heading")
	require.Contains(t, text, "First & second.")
	require.NotContains(t, text, "var x=1")
	require.NotContains(t, text, "color:red")
	require.NotContains(t, text, "<p>")
}
