package models

import (
	"encoding/json"
	"time"
)

type FieldStatus string

const (
	FieldNotAttempted FieldStatus = "not_attempted"
	FieldFound        FieldStatus = "found"
	FieldMissing      FieldStatus = "missing"
	FieldFailed       FieldStatus = "failed"
)

// Field is the outcome of one best-effort extraction.
type Field struct {
	Value  string      `json:"value,omitempty"`
	Status FieldStatus `json:"status"`
	Source string      `json:"source,omitempty"`
	Err    error       `json:"-"`
}

func (f Field) Found() bool {
	return f.Status == FieldFound
}

func (f *Field) Set(value, source string) {
	f.Value = value
	f.Status = FieldFound
	f.Source = source
	f.Err = nil
}

// Miss records a selector miss unless an earlier attempt already succeeded.
func (f *Field) Miss() {
	if f.Status != FieldFound {
		f.Status = FieldMissing
	}
}

func (f *Field) Fail(err error) {
	if f.Status != FieldFound {
		f.Status = FieldFailed
		f.Err = err
	}
}

// ProductRecord holds everything extracted from one product page visit.
type ProductRecord struct {
	URL          string
	RunID        string
	Title        Field
	MRP          Field
	Quantity     Field
	Manufacturer Field
	Origin       Field
	Images       []string
	// Extra holds open-ended detail-table rows, keyed by their label.
	Extra       map[string]string
	ImageReport ImageReport
	ScrapedAt   time.Time
	// Err is set when the page could not be opened at all.
	Err error
}

func NewProductRecord(url string) *ProductRecord {
	return &ProductRecord{
		URL:          url,
		Title:        Field{Status: FieldNotAttempted},
		MRP:          Field{Status: FieldNotAttempted},
		Quantity:     Field{Status: FieldNotAttempted},
		Manufacturer: Field{Status: FieldNotAttempted},
		Origin:       Field{Status: FieldNotAttempted},
		Images:       make([]string, 0),
		Extra:        make(map[string]string),
		ScrapedAt:    time.Now(),
	}
}

// FixedKeys are the keys every flattened record carries.
var FixedKeys = []string{"url", "title", "mrp", "quantity", "manufacturer", "origin", "images"}

// Flatten returns the flat key/value view of the record. Extra keys are
// merged last, so an extra row labelled like a fixed key replaces it.
func (r *ProductRecord) Flatten() map[string]any {
	out := map[string]any{
		"url":          r.URL,
		"title":        r.Title.nullable(),
		"mrp":          r.MRP.nullable(),
		"quantity":     r.Quantity.nullable(),
		"manufacturer": r.Manufacturer.nullable(),
		"origin":       r.Origin.nullable(),
		"images":       append([]string{}, r.Images...),
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	return out
}

func (r *ProductRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flatten())
}

// Fields returns the scalar fields keyed like the flat view.
func (r *ProductRecord) Fields() map[string]Field {
	return map[string]Field{
		"title":        r.Title,
		"mrp":          r.MRP,
		"quantity":     r.Quantity,
		"manufacturer": r.Manufacturer,
		"origin":       r.Origin,
	}
}

func (f Field) nullable() any {
	if f.Status != FieldFound {
		return nil
	}
	return f.Value
}

// DetailMap maps a product detail label to its value.
type DetailMap map[string]string

// Add stores value under label unless the label is already present.
func (d DetailMap) Add(label, value string) bool {
	if _, exists := d[label]; exists {
		return false
	}
	d[label] = value
	return true
}

// ImageCandidate is an image URL found by one discovery tier.
type ImageCandidate struct {
	URL    string `json:"url"`
	Tier   string `json:"tier"`
	Prefix string `json:"prefix"`
}

type TierResult struct {
	Name      string `json:"name"`
	Attempted bool   `json:"attempted"`
	Found     int    `json:"found"`
	Saved     int    `json:"saved"`
	Error     string `json:"error,omitempty"`
}

// ImageReport records which image tiers ran and what each contributed.
type ImageReport struct {
	Tiers      []TierResult     `json:"tiers"`
	Candidates []ImageCandidate `json:"candidates,omitempty"`
}

func (r ImageReport) Tier(name string) (TierResult, bool) {
	for _, t := range r.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return TierResult{}, false
}
