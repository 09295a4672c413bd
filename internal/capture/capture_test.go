package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/warplog/internal/config"
)

const (
	oldURL = "https://gs.hoyoverse.com/hkrpg/event/e20211215gacha-v2/index.html?win_mode=fullscreen&auth_appid=webview_gacha&authkey_ver=1&sign_type=2&authkey=OLD&lang=en&game_biz=hkrpg_global"
	newURL = "https://webstatic.mihoyo.com/hkrpg/event/e20211215gacha-v2/index.html?win_mode=fullscreen&auth_appid=webview_gacha&authkey_ver=1&sign_type=2&authkey=NEW&lang=zh-cn&game_biz=hkrpg_cn"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"plain url", newURL, newURL},
		{"no match", "https://example.com/?authkey=x", ""},
		{"empty", "", ""},
		{"later cache entry wins", "\x00junk1/0/" + oldURL + "\x00\x011/0/" + newURL + "\x00tail", newURL},
		{"later match in one entry wins", oldURL + "\n" + newURL, newURL},
		{"newest entry without url is skipped", oldURL + "1/0/nothing here", oldURL},
		{"other game is ignored", "https://x/?a=1&auth_appid=webview_gacha&b=2&authkey=k&game_biz=hk4e_cn", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract([]byte(tt.data)))
		})
	}
}

func TestStatic(t *testing.T) {
	s := Static{"100": newURL}

	url, err := s.CaptureURL(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, newURL, url)

	url, err = s.CaptureURL(context.Background(), "200")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data_2")
	require.NoError(t, os.WriteFile(path, []byte("header1/0/"+oldURL+"1/0/"+newURL), 0644))

	f := NewFile(map[string]string{
		"100": path,
		"200": filepath.Join(dir, "missing"),
	}, nil)

	url, err := f.CaptureURL(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, newURL, url)

	url, err = f.CaptureURL(context.Background(), "200")
	require.NoError(t, err, "a missing cache is not an error")
	assert.Empty(t, url)

	url, err = f.CaptureURL(context.Background(), "300")
	require.NoError(t, err)
	assert.Empty(t, url)
}

type failing struct{}

func (failing) CaptureURL(context.Context, string) (string, error) {
	return "", errors.New("boom")
}

func TestChain(t *testing.T) {
	c := Chain{Static{}, Static{"100": oldURL}, Static{"100": newURL}}

	url, err := c.CaptureURL(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, oldURL, url)

	_, err = Chain{Static{}, failing{}}.CaptureURL(context.Background(), "100")
	assert.Error(t, err)
}

func TestFromAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache")
	require.NoError(t, os.WriteFile(path, []byte(oldURL), 0644))

	p := FromAccounts([]config.AccountConfig{
		{UID: "100", CaptureURL: newURL, CachePath: path},
		{UID: "200", CachePath: path},
		{UID: "300"},
	}, nil)

	ctx := context.Background()
	url, err := p.CaptureURL(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, newURL, url, "explicit url wins over cache")

	url, err = p.CaptureURL(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, oldURL, url)

	url, err = p.CaptureURL(ctx, "300")
	require.NoError(t, err)
	assert.Empty(t, url)
}
