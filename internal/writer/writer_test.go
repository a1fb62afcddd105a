package writer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatpack/chatpack/internal/model"
)

var baseTime = time.Date(2024, 1, 15, 10, 30, 5, 0, time.UTC)

func sample() []model.Message {
	return []model.Message{
		{Sender: "Alice", Timestamp: baseTime, Text: "Hello, \"Bob\"\nhow are you?", ID: "1"},
		{Sender: "Bob", Timestamp: baseTime.Add(time.Minute), Text: "fine", ID: "2", ReplyTo: "1",
			EditedAt: baseTime.Add(2 * time.Minute)},
		{Sender: "Alice", Timestamp: baseTime.Add(3 * time.Minute), Text: "",
			Attachments: []model.Attachment{{Kind: model.KindPhoto, Name: "beach.jpg"}}},
	}
}

func render(t *testing.T, f Format, sel FieldSelection, msgs []model.Message) string {
	t.Helper()
	var buf bytes.Buffer
	w := New(f, &buf, sel)
	for _, m := range msgs {
		require.NoError(t, w.Write(m))
	}
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestCSV_RoundTripsTrickyText(t *testing.T) {
	out := render(t, CSV, FieldSelection{}, sample())

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"sender", "message"}, rows[0])
	assert.Equal(t, "Hello, \"Bob\"\nhow are you?", rows[1][1])
}

func TestCSV_FieldSelectionColumns(t *testing.T) {
	out := render(t, CSV, FieldSelection{Timestamps: true, Replies: true, Edited: true, IDs: true}, sample())

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"sender", "timestamp", "message", "id", "reply_to", "edited"}, rows[0])
	assert.Equal(t, "2024-01-15 10:30:05", rows[1][1])
	assert.Equal(t, "1", rows[2][4])               // Bob replies to message 1
	assert.Equal(t, "2024-01-15 10:32:05", rows[2][5])
	assert.Equal(t, "", rows[3][5]) // never edited
}

func TestCSV_EmptyStreamStillHasHeader(t *testing.T) {
	out := render(t, CSV, FieldSelection{}, nil)
	assert.Equal(t, "sender,message\n", out)
}

func TestCSV_AttachmentTokens(t *testing.T) {
	out := render(t, CSV, FieldSelection{}, sample())
	assert.Contains(t, out, "[photo: beach.jpg]")
}

func TestJSON_ValidArray(t *testing.T) {
	out := render(t, JSON, FieldSelection{IDs: true}, sample())

	var arr []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &arr))
	require.Len(t, arr, 3)
	assert.Equal(t, "Alice", arr[0]["sender"])
	assert.Equal(t, "1", arr[0]["id"])

	// Unselected fields must not appear as keys.
	_, hasTS := arr[0]["timestamp"]
	assert.False(t, hasTS)
}

func TestJSON_EmptyStream(t *testing.T) {
	out := render(t, JSON, FieldSelection{}, nil)
	assert.Equal(t, "[]\n", out)
}

func TestJSONL_OneObjectPerLine(t *testing.T) {
	out := render(t, JSONL, FieldSelection{Timestamps: true}, sample())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &obj), line)
		assert.Contains(t, obj, "sender")
		assert.Contains(t, obj, "timestamp")
	}
}

func TestRenderText_AttachmentOnly(t *testing.T) {
	msg := model.Message{Attachments: []model.Attachment{{Kind: model.KindSticker}}}
	assert.Equal(t, "[sticker]", renderText(msg))

	msg.Text = "caption"
	assert.Equal(t, "caption [sticker]", renderText(msg))
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"csv": CSV, "json": JSON, "jsonl": JSONL} {
		got, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.Ext())
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}
