package interchange

import "github.com/rickgao/warplog/internal/model"

// UIGFVersion is the UIGF revision this package reads and writes.
const UIGFVersion = "v4.0"

// UIGFInfo is the UIGF header. Accounts are listed per game.
type UIGFInfo struct {
	ExportTime       string `json:"export_time"`
	ExportTimestamp  int64  `json:"export_timestamp"`
	ExportApp        string `json:"export_app" validate:"required"`
	ExportAppVersion string `json:"export_app_version" validate:"required"`
	Version          string `json:"version" validate:"required,oneof=v4.0"`
}

// UIGFAccount is one account's entry in the hkrpg section.
type UIGFAccount struct {
	UID      string `json:"uid" validate:"required,number"`
	Timezone int    `json:"timezone" validate:"min=-12,max=14"`
	Lang     string `json:"lang"`
	List     []Item `json:"list" validate:"dive"`
}

// UIGFDocument is a UIGF file. Sections for other games are ignored.
type UIGFDocument struct {
	Info  UIGFInfo      `json:"info"`
	HKRPG []UIGFAccount `json:"hkrpg" validate:"dive"`
}

// Validate checks the document against the UIGF schema.
func (d *UIGFDocument) Validate() error {
	return check(d)
}

func (d *UIGFDocument) archives() []Archive {
	out := make([]Archive, 0, len(d.HKRPG))
	for _, acct := range d.HKRPG {
		lang := orDefault(acct.Lang, "-")
		out = append(out, Archive{
			Format:           FormatUIGF,
			UID:              acct.UID,
			Lang:             lang,
			TimeZone:         acct.Timezone,
			ExportApp:        d.Info.ExportApp,
			ExportAppVersion: d.Info.ExportAppVersion,
			Items:            toModels(acct.List, acct.UID, lang),
		})
	}
	return out
}

func newUIGF(items []model.GachaRecordItem, batch model.GachaRecordBatch, header exportHeader) *UIGFDocument {
	list := make([]Item, 0, len(items))
	for _, item := range items {
		list = append(list, itemFromModel(item))
	}
	return &UIGFDocument{
		Info: UIGFInfo{
			ExportTime:       header.time,
			ExportTimestamp:  header.timestamp,
			ExportApp:        header.app,
			ExportAppVersion: header.appVersion,
			Version:          UIGFVersion,
		},
		HKRPG: []UIGFAccount{{
			UID:      batch.UID,
			Timezone: batch.RegionTimeZone,
			Lang:     batch.Lang,
			List:     list,
		}},
	}
}
