package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractor_Load_Errors(t *testing.T) {
	dir := t.TempDir()

	notPDF := filepath.Join(dir, "x.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("this is a plain text file"), 0o644))

	truncated := filepath.Join(dir, "truncated.pdf")
	require.NoError(t, os.WriteFile(truncated, []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n"), 0o644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(dir, "missing.pdf"), "failed to stat PDF file"},
		{"not a pdf", notPDF, "invalid header"},
		{"no trailer", truncated, "missing %%EOF"},
	}

	e := NewPDFExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := e.Load(context.Background(), tt.path)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPDFExtractor_Load_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFExtractor().Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
