package writer

import (
	"encoding/json"
	"io"

	"github.com/chatpack/chatpack/internal/model"
)

// jsonWriter streams a single JSON array, one element at a time. Earlier
// elements are already on the sink when later ones are serialized.
type jsonWriter struct {
	w      io.Writer
	sel    FieldSelection
	opened bool
}

func newJSONWriter(w io.Writer, sel FieldSelection) *jsonWriter {
	return &jsonWriter{w: w, sel: sel}
}

func (j *jsonWriter) Write(msg model.Message) error {
	prefix := ",\n  "
	if !j.opened {
		prefix = "[\n  "
		j.opened = true
	}

	data, err := json.Marshal(makeRecord(msg, j.sel))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(j.w, prefix); err != nil {
		return err
	}
	_, err = j.w.Write(data)
	return err
}

func (j *jsonWriter) Flush() error {
	if !j.opened {
		_, err := io.WriteString(j.w, "[]\n")
		return err
	}
	_, err := io.WriteString(j.w, "\n]\n")
	return err
}

// jsonlWriter emits one compact object per line with no enclosing array,
// append-friendly for RAG ingestion.
type jsonlWriter struct {
	w   io.Writer
	sel FieldSelection
}

func newJSONLWriter(w io.Writer, sel FieldSelection) *jsonlWriter {
	return &jsonlWriter{w: w, sel: sel}
}

func (j *jsonlWriter) Write(msg model.Message) error {
	data, err := json.Marshal(makeRecord(msg, j.sel))
	if err != nil {
		return err
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(j.w, "\n")
	return err
}

func (j *jsonlWriter) Flush() error { return nil }
