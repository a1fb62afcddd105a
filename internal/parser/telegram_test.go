package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatpack/chatpack/internal/model"
)

const tgFixture = `{
  "name": "Project Chat",
  "type": "personal_chat",
  "id": 777,
  "messages": [
    {
      "id": 1,
      "type": "message",
      "date": "2024-01-15T10:30:05",
      "from": "Alice",
      "text": "Hello Bob"
    },
    {
      "id": 2,
      "type": "message",
      "date": "2024-01-15T10:31:00",
      "from": "Bob",
      "text": ["check ", {"type": "link", "text": "https://example.com"}, " out"],
      "reply_to_message_id": 1
    },
    {
      "id": 3,
      "type": "service",
      "date": "2024-01-15T10:32:00",
      "actor": "Alice",
      "action": "pin_message",
      "text": ""
    },
    {
      "id": 4,
      "type": "message",
      "date": "2024-01-15T10:33:00",
      "from": "Alice",
      "forwarded_from": "Carol",
      "edited": "2024-01-15T10:40:00",
      "photo": "photos/photo_1.jpg",
      "text": "look at this"
    }
  ]
}`

func TestTelegram_Basic(t *testing.T) {
	s, err := Open(Telegram, strings.NewReader(tgFixture), Options{})
	require.NoError(t, err)

	msgs, skipped, err := Collect(s)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, msgs, 3) // service message dropped by default

	assert.Equal(t, "Alice", msgs[0].Sender)
	assert.Equal(t, "Hello Bob", msgs[0].Text)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, 2024, msgs[0].Timestamp.Year())

	assert.Equal(t, "Bob", msgs[1].Sender)
	assert.Equal(t, "check https://example.com out", msgs[1].Text)
	assert.Equal(t, "1", msgs[1].ReplyTo)

	assert.Equal(t, "Carol", msgs[2].ForwardedFrom)
	assert.False(t, msgs[2].EditedAt.IsZero())
	require.Len(t, msgs[2].Attachments, 1)
	assert.Equal(t, model.KindPhoto, msgs[2].Attachments[0].Kind)
}

func TestTelegram_IncludeSystem(t *testing.T) {
	s, err := Open(Telegram, strings.NewReader(tgFixture), Options{IncludeSystem: true})
	require.NoError(t, err)

	msgs, _, err := Collect(s)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.True(t, msgs[2].System)
	assert.Equal(t, "Alice", msgs[2].Sender)
}

func TestTelegram_Deterministic(t *testing.T) {
	parse := func() []model.Message {
		s, err := Open(Telegram, strings.NewReader(tgFixture), Options{})
		require.NoError(t, err)
		msgs, _, err := Collect(s)
		require.NoError(t, err)
		return msgs
	}
	assert.Equal(t, parse(), parse())
}

func TestTelegram_RecordErrorsSkipped(t *testing.T) {
	fixture := `{"messages": [
		{"id": 1, "type": "message", "date": "2024-01-15T10:30:05", "from": "Alice", "text": "ok"},
		{"id": 2, "type": "weird_future_type", "date": "2024-01-15T10:31:00", "from": "Bob", "text": "?"},
		{"id": 3, "type": "message", "date": "not-a-date", "from": "Bob", "text": "bad date"},
		{"id": 4, "type": "message", "date": "2024-01-15T10:32:00", "from": "Bob", "text": "fine"}
	]}`

	s, err := Open(Telegram, strings.NewReader(fixture), Options{})
	require.NoError(t, err)

	msgs, skipped, err := Collect(s)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ok", msgs[0].Text)
	assert.Equal(t, "fine", msgs[1].Text)
}

func TestTelegram_UnixTimestampFallback(t *testing.T) {
	fixture := `{"messages": [
		{"id": 1, "type": "message", "date_unixtime": "1705314605", "from": "Alice", "text": "unix"}
	]}`

	s, err := Open(Telegram, strings.NewReader(fixture), Options{})
	require.NoError(t, err)
	msgs, _, err := Collect(s)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(1705314605), msgs[0].Timestamp.Unix())
}

func TestTelegram_FileErrors(t *testing.T) {
	cases := map[string]string{
		"not json":          "{ invalid json",
		"wrong root":        `[1, 2, 3]`,
		"no messages array": `{"name": "chat"}`,
		"messages not list": `{"messages": {"oops": true}}`,
		"empty input":       "",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Open(Telegram, strings.NewReader(input), Options{})
			var ferr *FileError
			require.ErrorAs(t, err, &ferr)
		})
	}
}
