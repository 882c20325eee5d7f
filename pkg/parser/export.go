package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// MaxExportSize caps how much text is read from an export, compressed or not.
const MaxExportSize = 256 << 20

// ErrExportTooLarge is returned when an export exceeds MaxExportSize.
var ErrExportTooLarge = errors.New("export exceeds maximum size")

// ErrNoChatFile is returned when a zip export holds no .txt chat log.
var ErrNoChatFile = errors.New("no .txt chat file found in export")

// ReadExport reads the chat text of an export file. Plain text is read
// as-is; .zip exports yield their first .txt entry and .gz files are
// decompressed.
func ReadExport(filename string) (string, error) {
	data, err := os.ReadFile(filename) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return "", fmt.Errorf("reading export %s: %w", filename, err)
	}
	return DecodeExport(filename, data)
}

// DecodeExport extracts chat text from export bytes. The name is only used
// to pick the container format by extension.
func DecodeExport(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return readZip(data)
	case ".gz":
		return readGzip(data)
	default:
		if len(data) > MaxExportSize {
			return "", ErrExportTooLarge
		}
		return string(data), nil
	}
}

func readZip(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening zip export: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if !strings.EqualFold(path.Ext(f.Name), ".txt") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening %s in zip export: %w", f.Name, err)
		}
		defer rc.Close()

		return readLimited(rc)
	}

	return "", ErrNoChatFile
}

func readGzip(data []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("opening gzip export: %w", err)
	}
	defer zr.Close()

	return readLimited(zr)
}

// readLimited reads at most MaxExportSize bytes to guard against
// decompression bombs.
func readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxExportSize+1))
	if err != nil {
		return "", fmt.Errorf("decompressing export: %w", err)
	}
	if len(data) > MaxExportSize {
		return "", ErrExportTooLarge
	}
	return string(data), nil
}
