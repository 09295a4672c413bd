package api

import (
	"github.com/rickgao/warplog/internal/model"
)

// ToModel converts an upstream item to a record.
func (i GachaLogItem) ToModel() model.GachaRecordItem {
	return model.GachaRecordItem{
		ID:        i.ID,
		UID:       i.UID,
		GachaID:   i.GachaID,
		GachaType: model.GachaType(i.GachaType),
		ItemID:    i.ItemID,
		Count:     i.Count,
		Time:      i.Time,
		Name:      i.Name,
		Lang:      i.Lang,
		ItemType:  i.ItemType,
		RankType:  i.RankType,
	}
}

// ConvertItems converts a page of upstream items, preserving order.
// Returns nil for an empty page.
func ConvertItems(items []GachaLogItem) []model.GachaRecordItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]model.GachaRecordItem, len(items))
	for i, item := range items {
		out[i] = item.ToModel()
	}
	return out
}
