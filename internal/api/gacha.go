package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rickgao/warplog/internal/model"
)

const (
	gachaLogPath              = "/common/gacha_record/api/getGachaLog"
	collaborationGachaLogPath = "/common/gacha_record/api/getLdGachaLog"
)

// GetGachaLog fetches one page of a pool's records older than endID, newest
// first. endID 0 requests the newest page.
func (c *Client) GetGachaLog(ctx context.Context, cu CaptureURL, gachaType model.GachaType, size int, endID int64) (*GachaLogPage, error) {
	base, err := c.baseURL(cu.GameBiz)
	if err != nil {
		return nil, err
	}

	path := gachaLogPath
	if gachaType.IsCollaboration() {
		path = collaborationGachaLogPath
	}

	query := cu.Query()
	query.Set("gacha_type", string(gachaType))
	query.Set("size", strconv.Itoa(size))
	query.Set("end_id", strconv.FormatInt(endID, 10))

	c.logger.Debug("fetching gacha log page",
		"gacha_type", string(gachaType),
		"size", size,
		"end_id", endID,
	)

	var page GachaLogPage
	if err := c.get(ctx, base+path, query, &page); err != nil {
		return nil, fmt.Errorf("get gacha log %s: %w", gachaType, err)
	}

	return &page, nil
}
