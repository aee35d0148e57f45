package schemas

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func TestWithCommentsCopies(t *testing.T) {
	src := []Comment{{CommentID: "c1", Content: "nice"}}
	base := Detail{NoteID: "n1"}

	d := base.WithComments(src)
	src[0].Content = "changed"

	require.Len(t, d.Comments, 1)
	assert.Equal(t, "nice", d.Comments[0].Content)
	assert.Nil(t, base.Comments, "receiver must not be modified")

	empty := base.WithComments(nil)
	assert.NotNil(t, empty.Comments)
	assert.Empty(t, empty.Comments)
}

func TestDetailWireShape(t *testing.T) {
	d := Detail{NoteID: "n1", NoteType: NoteTypeVideo}.WithComments(nil)
	out, err := json.Marshal(d)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "n1", m["note_id"])
	assert.Equal(t, "video", m["note_type"])
	assert.Equal(t, []interface{}{}, m["comments"])
	_, hasVideo := m["video_url"]
	assert.False(t, hasVideo, "empty video_url is omitted")
}

func TestRunWireShape(t *testing.T) {
	run := Run{ID: "r1", Keyword: "tea", CrawledAt: time.Date(2024, 3, 15, 14, 30, 22, 0, time.UTC)}
	out, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"run_id":"r1"`)
	assert.Contains(t, string(out), `"crawled_at":"2024-03-15T14:30:22Z"`)
}
