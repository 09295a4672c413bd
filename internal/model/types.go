package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wall-clock format used by the upstream API and by every
// stored record.
const TimeLayout = "2006-01-02 15:04:05"

// -----------------------------------------------------------------------------
// Pools
// -----------------------------------------------------------------------------

// GachaType identifies a pool. Values are the upstream's gacha_type strings.
type GachaType string

const (
	RegularWarp                GachaType = "1"
	StarterWarp                GachaType = "2"
	CharacterEventWarp         GachaType = "11"
	LightConeEventWarp         GachaType = "12"
	CharacterCollaborationWarp GachaType = "21"
	LightConeCollaborationWarp GachaType = "22"
)

// StandardPools are the four pools fetched by default.
var StandardPools = []GachaType{
	CharacterEventWarp,
	LightConeEventWarp,
	RegularWarp,
	StarterWarp,
}

// CollaborationPools are served from a separate upstream path.
var CollaborationPools = []GachaType{
	CharacterCollaborationWarp,
	LightConeCollaborationWarp,
}

// IsCollaboration reports whether the pool is a collaboration pool.
func (g GachaType) IsCollaboration() bool {
	return g == CharacterCollaborationWarp || g == LightConeCollaborationWarp
}

// Valid reports whether g is a known pool.
func (g GachaType) Valid() bool {
	switch g {
	case RegularWarp, StarterWarp, CharacterEventWarp, LightConeEventWarp,
		CharacterCollaborationWarp, LightConeCollaborationWarp:
		return true
	}
	return false
}

// Name returns a human readable pool name.
func (g GachaType) Name() string {
	switch g {
	case RegularWarp:
		return "RegularWarp"
	case StarterWarp:
		return "StarterWarp"
	case CharacterEventWarp:
		return "CharacterEventWarp"
	case LightConeEventWarp:
		return "LightConeEventWarp"
	case CharacterCollaborationWarp:
		return "CharacterCollaborationWarp"
	case LightConeCollaborationWarp:
		return "LightConeCollaborationWarp"
	}
	return "Unknown(" + string(g) + ")"
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

// GachaRecordItem is a single pull. Immutable once stored.
type GachaRecordItem struct {
	ID        string    // Decimal id, unique and increasing per account
	UID       string    // Account uid
	GachaID   string    // Banner id
	GachaType GachaType // Pool
	ItemID    string    // Item id
	Count     string    // Usually "1"
	Time      string    // Wall clock (TimeLayout) in the account's pinned timezone
	Name      string    // Localized item name
	Lang      string    // Language of Name and ItemType
	ItemType  string    // Localized item category
	RankType  string    // Rarity ("3", "4", "5")
}

// NumericID returns the id as int64, or 0 if it is not a valid decimal.
func (g GachaRecordItem) NumericID() int64 {
	n, err := ParseID(g.ID)
	if err != nil {
		return 0
	}
	return n
}

// GachaRecordBatch records the provenance of one ingestion that added at
// least one item.
type GachaRecordBatch struct {
	BatchID        int    // Monotonic per account, starts at 1
	UID            string // Account uid
	Lang           string // Language of the ingested items
	RegionTimeZone int    // Signed UTC hour offset the items' Time is expressed in
	Source         string // Ingestion origin, e.g. "warplog_1.2.0"
	Count          int    // Items added by this batch
	Timestamp      int64  // Ingestion time (unix seconds)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// ParseID parses a decimal record id.
func ParseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	return n, nil
}

// CompareID orders two decimal ids numerically. It returns -1, 0 or 1.
func CompareID(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// ConvertTimezone re-expresses a wall-clock time given in UTC offset from
// (hours) as wall-clock time in offset to.
func ConvertTimezone(wall string, from, to int) (string, error) {
	if from == to {
		return wall, nil
	}
	t, err := time.ParseInLocation(TimeLayout, wall, FixedZone(from))
	if err != nil {
		return "", fmt.Errorf("parse record time %q: %w", wall, err)
	}
	return t.In(FixedZone(to)).Format(TimeLayout), nil
}

// ConvertTimes applies ConvertTimezone to every item in place.
func ConvertTimes(items []GachaRecordItem, from, to int) error {
	if from == to {
		return nil
	}
	for i := range items {
		t, err := ConvertTimezone(items[i].Time, from, to)
		if err != nil {
			return err
		}
		items[i].Time = t
	}
	return nil
}

// FixedZone returns a location for a whole-hour UTC offset.
func FixedZone(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	return time.FixedZone(name, offsetHours*3600)
}
