package stealth

import (
	"math/rand"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersona(t *testing.T) {
	p := NewPersona(rand.New(rand.NewSource(7)))

	assert.Contains(t, p.UserAgent, "Macintosh; Intel Mac OS X")
	assert.Contains(t, p.UserAgent, "Chrome/")
	assert.Equal(t, "MacIntel", p.Platform)
	assert.Equal(t, "Asia/Shanghai", p.Timezone)
	assert.Equal(t, "zh-CN", p.Locale)
	assert.Equal(t, "zh-CN", p.Languages[0])
	assert.Greater(t, p.Width, p.Height)
	assert.Positive(t, p.HardwareConcurrency)

	// The same seed yields the same fingerprint.
	assert.Equal(t, p, NewPersona(rand.New(rand.NewSource(7))))
}

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		langs []string
		want  string
	}{
		{nil, ""},
		{[]string{"zh-CN"}, "zh-CN"},
		{[]string{"zh-CN", "zh", "en"}, "zh-CN,zh;q=0.9,en;q=0.8"},
		{[]string{"a", "b", "c", "d", "e", "f"}, "a,b;q=0.9,c;q=0.8,d;q=0.7,e;q=0.7,f;q=0.7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Persona{Languages: tt.langs}.AcceptLanguage())
	}
}

func TestScriptBindsPersona(t *testing.T) {
	p := NewPersona(rand.New(rand.NewSource(1)))

	script, err := p.Script()
	require.NoError(t, err)

	first, rest, found := strings.Cut(script, "\n")
	require.True(t, found)
	require.True(t, strings.HasPrefix(first, "const NOTECRAWL_PERSONA = "))
	assert.Contains(t, rest, "webdriver")

	var decoded Persona
	raw := strings.TrimSuffix(strings.TrimPrefix(first, "const NOTECRAWL_PERSONA = "), ";")
	require.NoError(t, jsoniter.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, p, decoded)
}

func TestApplyBuildsTaskList(t *testing.T) {
	tasks := Apply(NewPersona(rand.New(rand.NewSource(3))), nil)
	assert.Len(t, tasks, 8)
}
