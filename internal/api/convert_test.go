package api

import (
	"encoding/json"
	"testing"

	"github.com/rickgao/warplog/internal/model"
)

func TestGachaLogItemToModel(t *testing.T) {
	item := GachaLogItem{
		UID:       "100",
		GachaID:   "2003",
		GachaType: "12",
		ItemID:    "23000",
		Count:     "1",
		Time:      "2024-01-15 12:00:00",
		Name:      "Night on the Milky Way",
		Lang:      "en",
		ItemType:  "Light Cone",
		RankType:  "5",
		ID:        "1705300000000000009",
	}

	got := item.ToModel()
	want := model.GachaRecordItem{
		ID:        "1705300000000000009",
		UID:       "100",
		GachaID:   "2003",
		GachaType: model.LightConeEventWarp,
		ItemID:    "23000",
		Count:     "1",
		Time:      "2024-01-15 12:00:00",
		Name:      "Night on the Milky Way",
		Lang:      "en",
		ItemType:  "Light Cone",
		RankType:  "5",
	}
	if got != want {
		t.Errorf("ToModel() = %+v, want %+v", got, want)
	}
}

func TestConvertItems(t *testing.T) {
	if got := ConvertItems(nil); got != nil {
		t.Errorf("ConvertItems(nil) = %v, want nil", got)
	}

	items := []GachaLogItem{{ID: "3"}, {ID: "2"}, {ID: "1"}}
	got := ConvertItems(items)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, id := range []string{"3", "2", "1"} {
		if got[i].ID != id {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{`20`, 20},
		{`"20"`, 20},
		{`""`, 0},
		{`null`, 0},
		{`"-5"`, -5},
	}

	for _, tt := range tests {
		var f flexInt
		if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.input, err)
			continue
		}
		if int(f) != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, f, tt.want)
		}
	}

	var f flexInt
	if err := json.Unmarshal([]byte(`"abc"`), &f); err == nil {
		t.Error("expected error for non-numeric input")
	}
}
