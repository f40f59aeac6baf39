// Package corpus assembles the quote list the daily selector picks from.
//
// A Manager merges any number of ports.CorpusSource values (the embedded default
// list, a local file, a remote API) into one de-duplicated, immutable snapshot that
// can be reloaded at runtime.
package corpus

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

//go:embed quotes.yaml
var embeddedQuotes []byte

// EmbeddedSource serves the quotes compiled into the binary.
type EmbeddedSource struct{}

// Name implements ports.CorpusSource.
func (EmbeddedSource) Name() string { return "embedded" }

// LoadQuotes implements ports.CorpusSource.
func (EmbeddedSource) LoadQuotes(context.Context) ([]domain.Quote, error) {
	quotes, err := decodeYAML(embeddedQuotes)
	if err != nil {
		return nil, fmt.Errorf("embedded corpus: %w", err)
	}

	for i := range quotes {
		if quotes[i].Source == "" {
			quotes[i].Source = "embedded"
		}
	}

	return quotes, nil
}

// FileSource reads a YAML (.yaml, .yml) or JSON (.json) list of quotes.
type FileSource struct {
	Path string
}

// Name implements ports.CorpusSource.
func (f FileSource) Name() string { return "file:" + filepath.Base(f.Path) }

// LoadQuotes re-reads the file on every call.
func (f FileSource) LoadQuotes(context.Context) ([]domain.Quote, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var quotes []domain.Quote

	switch ext := strings.ToLower(filepath.Ext(f.Path)); ext {
	case ".yaml", ".yml":
		quotes, err = decodeYAML(data)
	case ".json":
		err = json.Unmarshal(data, &quotes)
	default:
		return nil, domain.NewValidationErrorWithValue("corpus.file", "must end in .yaml, .yml or .json", f.Path)
	}

	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}

	for i := range quotes {
		if quotes[i].Source == "" {
			quotes[i].Source = f.Name()
		}
	}

	return quotes, nil
}

func decodeYAML(data []byte) ([]domain.Quote, error) {
	var quotes []domain.Quote

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&quotes); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return quotes, nil
}
