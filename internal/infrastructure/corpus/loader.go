package corpus

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/agri-assistant/internal/infrastructure/search/bm25"
)

// Loader turns a source PDF into lexical-index documents: extract text, split
// into overlapping chunks, attach the file name as the source.
type Loader struct {
	chunkSize int
	overlap   int
}

func NewLoader(chunkSize, overlap int) *Loader {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Loader{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

func (l *Loader) Load(path string) ([]bm25.Document, error) {
	text, err := extractText(path)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	chunks := l.split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus %s: no extractable text", source)
	}

	docs := make([]bm25.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, bm25.Document{
			Content: chunk,
			Source:  source,
		})
	}
	return docs, nil
}

func extractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}

func (l *Loader) split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := l.chunkSize - l.overlap
	if step <= 0 {
		step = l.chunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + l.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
