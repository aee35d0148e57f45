package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsAlwaysFillEveryField(t *testing.T) {
	cases := map[Code]*Error{
		CodeSessionNotRunning: SessionNotRunning(),
		CodeSessionCrashed:    SessionCrashed(),
		CodeSessionExpired:    SessionExpired(),
		CodeTimeout:           Timeout("search_notes", 120*time.Second),
		CodeInvalidInput:      InvalidInput("keyword", "must not be empty"),
		CodeOperationFailed:   OperationFailed("page did not load"),
	}

	for code, e := range cases {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, code, e.Code)
			assert.NotEmpty(t, e.Message)
			assert.NotEmpty(t, e.Action)
		})
	}
}

func TestTemplatesCarryArguments(t *testing.T) {
	assert.Contains(t, Timeout("crawl_keyword", 600*time.Second).Message, "crawl_keyword")
	assert.Contains(t, Timeout("crawl_keyword", 600*time.Second).Message, "600")

	in := InvalidInput("max_count", "out of range")
	assert.Contains(t, in.Message, "max_count")
	assert.Contains(t, in.Message, "out of range")
	assert.Contains(t, in.Action, "max_count")

	assert.Contains(t, OperationFailed("boom").Message, "boom")
}

func TestMarshalJSONWireShape(t *testing.T) {
	raw, err := jsoniter.Marshal(SessionExpired())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(raw, &decoded))

	assert.Len(t, decoded, 4)
	assert.Equal(t, true, decoded["error"])
	assert.Equal(t, "LOGIN_EXPIRED", decoded["code"])
	assert.NotEmpty(t, decoded["message"])
	assert.NotEmpty(t, decoded["action"])
}

func TestFrom(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("classified errors pass through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("search: %w", SessionCrashed())
		got := From(wrapped)
		assert.Equal(t, CodeSessionCrashed, got.Code)
	})

	t.Run("unknown errors become OperationFailed", func(t *testing.T) {
		got := From(errors.New("selector exploded"))
		assert.Equal(t, CodeOperationFailed, got.Code)
		assert.Contains(t, got.Message, "selector exploded")
	})
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("fetch: %w", SessionExpired())
	assert.ErrorIs(t, err, SessionExpired())
	assert.NotErrorIs(t, err, SessionCrashed())
	assert.True(t, HasCode(err, CodeSessionExpired))
	assert.False(t, HasCode(errors.New("plain"), CodeSessionExpired))
}
