package writer

import (
	"encoding/csv"
	"io"

	"github.com/chatpack/chatpack/internal/model"
)

type csvWriter struct {
	w           *csv.Writer
	sel         FieldSelection
	wroteHeader bool
}

func newCSVWriter(w io.Writer, sel FieldSelection) *csvWriter {
	return &csvWriter{w: csv.NewWriter(w), sel: sel}
}

// columns returns the header row for the current field selection. The
// column order is fixed; selection only removes columns.
func (c *csvWriter) columns() []string {
	cols := []string{"sender"}
	if c.sel.Timestamps {
		cols = append(cols, "timestamp")
	}
	cols = append(cols, "message")
	if c.sel.IDs {
		cols = append(cols, "id")
	}
	if c.sel.Replies {
		cols = append(cols, "reply_to")
	}
	if c.sel.Edited {
		cols = append(cols, "edited")
	}
	return cols
}

func (c *csvWriter) Write(msg model.Message) error {
	if !c.wroteHeader {
		if err := c.w.Write(c.columns()); err != nil {
			return err
		}
		c.wroteHeader = true
	}

	rec := makeRecord(msg, c.sel)
	row := []string{rec.Sender}
	if c.sel.Timestamps {
		row = append(row, rec.Timestamp)
	}
	row = append(row, rec.Text)
	if c.sel.IDs {
		row = append(row, rec.ID)
	}
	if c.sel.Replies {
		row = append(row, rec.ReplyTo)
	}
	if c.sel.Edited {
		row = append(row, rec.Edited)
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvWriter) Flush() error {
	// An empty stream still gets its header row.
	if !c.wroteHeader {
		if err := c.w.Write(c.columns()); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	c.w.Flush()
	return c.w.Error()
}
