package interchange

import "github.com/rickgao/warplog/internal/model"

// SRGFVersion is the SRGF revision this package reads and writes.
const SRGFVersion = "v1.0"

// SRGFInfo is the SRGF header. It describes a single account.
type SRGFInfo struct {
	UID              string `json:"uid" validate:"required,number"`
	Lang             string `json:"lang" validate:"required"`
	RegionTimeZone   int    `json:"region_time_zone" validate:"min=-12,max=14"`
	ExportTimestamp  int64  `json:"export_timestamp"`
	ExportTime       string `json:"export_time"`
	ExportApp        string `json:"export_app"`
	ExportAppVersion string `json:"export_app_version"`
	SRGFVersion      string `json:"srgf_version" validate:"required,oneof=v1.0"`
}

// SRGFDocument is a complete SRGF file.
type SRGFDocument struct {
	Info SRGFInfo `json:"info"`
	List []Item   `json:"list" validate:"dive"`
}

// Validate checks the document against the SRGF schema.
func (d *SRGFDocument) Validate() error {
	return check(d)
}

func (d *SRGFDocument) archive() Archive {
	return Archive{
		Format:           FormatSRGF,
		UID:              d.Info.UID,
		Lang:             d.Info.Lang,
		TimeZone:         d.Info.RegionTimeZone,
		ExportApp:        orDefault(d.Info.ExportApp, "-"),
		ExportAppVersion: orDefault(d.Info.ExportAppVersion, "-"),
		Items:            toModels(d.List, d.Info.UID, d.Info.Lang),
	}
}

func newSRGF(items []model.GachaRecordItem, batch model.GachaRecordBatch, header exportHeader) *SRGFDocument {
	list := make([]Item, 0, len(items))
	for _, item := range items {
		list = append(list, itemFromModel(item))
	}
	return &SRGFDocument{
		Info: SRGFInfo{
			UID:              batch.UID,
			Lang:             batch.Lang,
			RegionTimeZone:   batch.RegionTimeZone,
			ExportTimestamp:  header.timestamp,
			ExportTime:       header.time,
			ExportApp:        header.app,
			ExportAppVersion: header.appVersion,
			SRGFVersion:      SRGFVersion,
		},
		List: list,
	}
}
