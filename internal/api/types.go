package api

import (
	"bytes"
	"strconv"
)

// GachaLogPage is the data section of a getGachaLog response.
type GachaLogPage struct {
	Page           flexInt        `json:"page"`
	Size           flexInt        `json:"size"`
	List           []GachaLogItem `json:"list"`
	Region         string         `json:"region"`
	RegionTimeZone int            `json:"region_time_zone"`
}

// GachaLogItem is one record as served upstream. Every field is a string.
type GachaLogItem struct {
	UID       string `json:"uid"`
	GachaID   string `json:"gacha_id"`
	GachaType string `json:"gacha_type"`
	ItemID    string `json:"item_id"`
	Count     string `json:"count"`
	Time      string `json:"time"`
	Name      string `json:"name"`
	Lang      string `json:"lang"`
	ItemType  string `json:"item_type"`
	RankType  string `json:"rank_type"`
	ID        string `json:"id"`
}

// flexInt decodes integers the upstream sends either bare or quoted.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}
