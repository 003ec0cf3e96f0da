package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string              `json:"version"`
	Type      string              `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	FormCount int                 `json:"form_count"`
	States    map[model.State]int `json:"states"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every form in the store as JSONL to w, sorted by ID.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	forms, err := s.ListForms(ctx, model.FormFilter{})
	if err != nil {
		return fmt.Errorf("list forms: %w", err)
	}

	sort.Slice(forms, func(i, j int) bool {
		return forms[i].ID < forms[j].ID
	})

	states := make(map[model.State]int)
	for _, f := range forms {
		states[f.State]++
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		FormCount: len(forms),
		States:    states,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, f := range forms {
		if err := enc.Encode(record{Type: "form", Data: f}); err != nil {
			return fmt.Errorf("encode form %s: %w", f.ID, err)
		}
	}

	return nil
}

// readHeader decodes the header line at the start of an exported snapshot.
func readHeader(data []byte) (header, error) {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return header{}, fmt.Errorf("decode snapshot header: %w", err)
	}
	if h.Type != "header" {
		return header{}, errors.New("snapshot does not start with a header")
	}
	return h, nil
}
