package api

import (
	"net/url"
	"regexp"
)

// Supported game_biz values.
const (
	GameBizCN     = "hkrpg_cn"
	GameBizGlobal = "hkrpg_global"
)

// RequiredParams are the only capture URL parameters forwarded upstream.
var RequiredParams = []string{"authkey", "lang", "game_biz", "authkey_ver"}

var authKeyPattern = regexp.MustCompile(`(authkey=)[^&]*`)

// CaptureURL holds the parameters of a validated capture URL.
type CaptureURL struct {
	AuthKey    string
	AuthKeyVer string
	Lang       string
	GameBiz    string
}

// ParseCaptureURL validates raw and keeps only the required parameters.
func ParseCaptureURL(raw string) (CaptureURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return CaptureURL{}, &URLError{Reason: err.Error()}
	}

	q := u.Query()
	var missing []string
	for _, key := range RequiredParams {
		if q.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return CaptureURL{}, &URLError{Missing: missing}
	}

	cu := CaptureURL{
		AuthKey:    q.Get("authkey"),
		AuthKeyVer: q.Get("authkey_ver"),
		Lang:       q.Get("lang"),
		GameBiz:    q.Get("game_biz"),
	}
	if cu.GameBiz != GameBizCN && cu.GameBiz != GameBizGlobal {
		return CaptureURL{}, &URLError{Reason: "unsupported game_biz " + cu.GameBiz}
	}
	return cu, nil
}

// Query returns the parameters forwarded with every request.
func (u CaptureURL) Query() url.Values {
	q := url.Values{}
	q.Set("authkey", u.AuthKey)
	q.Set("authkey_ver", u.AuthKeyVer)
	q.Set("lang", u.Lang)
	q.Set("game_biz", u.GameBiz)
	return q
}

// RedactURL masks the authkey value in a URL or query string.
func RedactURL(raw string) string {
	return authKeyPattern.ReplaceAllString(raw, "${1}REDACTED")
}
