package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"github.com/rickgao/warplog/internal/config"
)

// Pattern matches a gacha record page URL as the game client logs it.
var Pattern = regexp.MustCompile(`https://.+?&auth_appid=webview_gacha&.+?authkey=.+?&game_biz=hkrpg_(?:cn|global)`)

// cacheSeparator splits entries of the game's web cache file.
var cacheSeparator = []byte("1/0/")

// Provider returns the capture URL for an account, or "" if none is known.
type Provider interface {
	CaptureURL(ctx context.Context, uid string) (string, error)
}

// Extract returns the newest capture URL in data, or "". data may be a plain
// text file or a binary web cache; later entries win.
func Extract(data []byte) string {
	segments := bytes.Split(data, cacheSeparator)
	for i := len(segments) - 1; i >= 0; i-- {
		matches := Pattern.FindAll(segments[i], -1)
		if len(matches) > 0 {
			return string(matches[len(matches)-1])
		}
	}
	return ""
}

// Static serves fixed URLs per uid.
type Static map[string]string

func (s Static) CaptureURL(ctx context.Context, uid string) (string, error) {
	return s[uid], nil
}

// File scans a file per uid for the newest capture URL.
type File struct {
	paths  map[string]string
	logger *slog.Logger
}

// NewFile creates a provider over paths keyed by uid.
func NewFile(paths map[string]string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{paths: paths, logger: logger}
}

func (f *File) CaptureURL(ctx context.Context, uid string) (string, error) {
	path := f.paths[uid]
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("capture file not found", "uid", uid, "path", path)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read capture file: %w", err)
	}

	url := Extract(data)
	if url == "" {
		f.logger.Warn("no capture url in file", "uid", uid, "path", path)
	}
	return url, nil
}

// Chain asks each provider in order and returns the first non-empty URL.
type Chain []Provider

func (c Chain) CaptureURL(ctx context.Context, uid string) (string, error) {
	for _, p := range c {
		url, err := p.CaptureURL(ctx, uid)
		if err != nil {
			return "", err
		}
		if url != "" {
			return url, nil
		}
	}
	return "", nil
}

// FromAccounts builds the provider for configured accounts: an explicit
// capture_url first, then the account's cache_path.
func FromAccounts(accounts []config.AccountConfig, logger *slog.Logger) Provider {
	static := Static{}
	paths := map[string]string{}
	for _, a := range accounts {
		if a.CaptureURL != "" {
			static[a.UID] = a.CaptureURL
		}
		if a.CachePath != "" {
			paths[a.UID] = a.CachePath
		}
	}
	return Chain{static, NewFile(paths, logger)}
}
