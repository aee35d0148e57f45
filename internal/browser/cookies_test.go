package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state", "cookies.json")

	in := FromNetwork([]*network.Cookie{
		{Name: "web_session", Value: "abc", Domain: ".xiaohongshu.com", Path: "/", Expires: 1893456000, HTTPOnly: true, Secure: true, SameSite: network.CookieSameSiteLax},
		nil,
		{Name: "a1", Value: "x", Domain: "www.xiaohongshu.com", Path: "/", Expires: -1},
	})
	require.Len(t, in, 2)
	require.NoError(t, WriteCookies(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := ReadCookies(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadCookiesMissingFile(t *testing.T) {
	out, err := ReadCookies(filepath.Join(t.TempDir(), "nope.json"))
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestReadCookiesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := ReadCookies(path)
	assert.Error(t, err)
}

func TestFilterDomain(t *testing.T) {
	cookies := []Cookie{
		{Name: "keep1", Domain: ".xiaohongshu.com"},
		{Name: "keep2", Domain: "edith.XiaoHongShu.com"},
		{Name: "drop1", Domain: "xiaohongshu.com.evil.example"},
		{Name: "drop2", Domain: ".example.com"},
		{Name: "drop3", Domain: "com"},
	}

	got := FilterDomain(cookies, "xiaohongshu.com")
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"keep1", "keep2"}, names)
}

func TestCookieParam(t *testing.T) {
	persistent := Cookie{Name: "n", Value: "v", Domain: ".xiaohongshu.com", Path: "/", Expires: 1893456000.5, SameSite: "Lax"}.Param()
	require.NotNil(t, persistent.Expires)
	assert.Equal(t, int64(1893456000), persistent.Expires.Time().Unix())
	assert.Equal(t, network.CookieSameSiteLax, persistent.SameSite)

	session := Cookie{Name: "s", Expires: -1}.Param()
	assert.Nil(t, session.Expires)
	assert.Empty(t, session.SameSite)
}
