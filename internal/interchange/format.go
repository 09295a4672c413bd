package interchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rickgao/warplog/internal/model"
)

var (
	// ErrUnknownFormat is returned for JSON that is neither SRGF nor UIGF.
	ErrUnknownFormat = errors.New("unknown archive format")

	// ErrInvalidDocument is matched by every *ValidationError.
	ErrInvalidDocument = errors.New("invalid archive")
)

// Format names an interchange format.
type Format string

const (
	FormatSRGF Format = "srgf"
	FormatUIGF Format = "uigf"
)

// ParseFormat accepts "srgf" or "uigf".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSRGF, FormatUIGF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid archive: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDocument
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and converts failures to *ValidationError.
func check(doc any) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, formatFieldError(fe))
	}
	return &ValidationError{Problems: problems}
}

func formatFieldError(fe validator.FieldError) string {
	// Drop the root type name from the namespace.
	_, field, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "number":
		return fmt.Sprintf("%s must be a decimal number", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %q", field, fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Item is a record as both formats carry it, without account fields.
type Item struct {
	GachaID   string `json:"gacha_id" validate:"required"`
	GachaType string `json:"gacha_type" validate:"required,oneof=1 2 11 12 21 22"`
	ItemID    string `json:"item_id" validate:"required"`
	Count     string `json:"count"`
	Time      string `json:"time" validate:"required,datetime=2006-01-02 15:04:05"`
	Name      string `json:"name"`
	ItemType  string `json:"item_type"`
	RankType  string `json:"rank_type"`
	ID        string `json:"id" validate:"required,number"`
}

func itemFromModel(r model.GachaRecordItem) Item {
	return Item{
		GachaID:   r.GachaID,
		GachaType: string(r.GachaType),
		ItemID:    r.ItemID,
		Count:     r.Count,
		Time:      r.Time,
		Name:      r.Name,
		ItemType:  r.ItemType,
		RankType:  r.RankType,
		ID:        r.ID,
	}
}

// toModel attaches the account fields and fills optional fields the way
// exporters leave them blank.
func (i Item) toModel(uid, lang string) model.GachaRecordItem {
	return model.GachaRecordItem{
		ID:        i.ID,
		UID:       uid,
		GachaID:   i.GachaID,
		GachaType: model.GachaType(i.GachaType),
		ItemID:    i.ItemID,
		Count:     orDefault(i.Count, "1"),
		Time:      i.Time,
		Name:      orDefault(i.Name, "-"),
		Lang:      lang,
		ItemType:  orDefault(i.ItemType, "-"),
		RankType:  orDefault(i.RankType, "-"),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Archive is one account's records decoded from either format.
type Archive struct {
	Format           Format
	UID              string
	Lang             string
	TimeZone         int
	ExportApp        string
	ExportAppVersion string
	Items            []model.GachaRecordItem // ascending by id
}

// Source is the batch source tag for records imported from the archive.
func (a Archive) Source() string {
	return a.ExportApp + "_" + a.ExportAppVersion
}

// Decode detects the format of data, validates it and returns one archive
// per account it contains.
func Decode(data []byte) ([]Archive, error) {
	var probe struct {
		Info map[string]json.RawMessage `json:"info"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	switch {
	case probe.Info["srgf_version"] != nil:
		var doc SRGFDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode srgf: %w", err)
		}
		if err := doc.Validate(); err != nil {
			return nil, err
		}
		return []Archive{doc.archive()}, nil

	case probe.Info["version"] != nil:
		var doc UIGFDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode uigf: %w", err)
		}
		if err := doc.Validate(); err != nil {
			return nil, err
		}
		return doc.archives(), nil
	}

	return nil, ErrUnknownFormat
}

func toModels(items []Item, uid, lang string) []model.GachaRecordItem {
	out := make([]model.GachaRecordItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.toModel(uid, lang))
	}
	sort.Slice(out, func(i, j int) bool {
		return model.CompareID(out[i].ID, out[j].ID) < 0
	})
	return out
}
