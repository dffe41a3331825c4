// Package deck holds the slide deck assembled during a builder session
// and the operations that mutate it.
package deck

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/decksmithhq/decksmith/internal/ciq"
)

// Kind identifies what a slide renders.
type Kind string

const (
	KindText    Kind = "text"
	KindBullets Kind = "bullets"
	KindChart   Kind = "chart"
	KindTable   Kind = "table"
)

// Kinds returns all slide kinds in menu order.
func Kinds() []Kind {
	return []Kind{KindText, KindBullets, KindChart, KindTable}
}

// ParseKind maps a form value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindBullets, KindChart, KindTable:
		return Kind(s), nil
	}
	return "", errors.New("unknown slide kind: " + s)
}

// Label returns the display name for a kind.
func (k Kind) Label() string {
	switch k {
	case KindText:
		return "Text Block"
	case KindBullets:
		return "Bullet List"
	case KindChart:
		return "Chart"
	case KindTable:
		return "Table"
	}
	return string(k)
}

// NeedsData reports whether slides of this kind carry a financial
// data request.
func (k Kind) NeedsData() bool {
	return k == KindChart || k == KindTable
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-:]{1,12}$`)

// DataSpec describes the financial data behind a chart or table slide.
type DataSpec struct {
	Ticker        string   `json:"ticker"`
	CompareTicker string   `json:"compare_ticker,omitempty"` // optional second company
	Years         int      `json:"years"`                    // fiscal years back from the latest completed one
	Metrics       []string `json:"metrics"`                  // CIQ mnemonics; empty uses the configured defaults
	WithRatios    bool     `json:"with_ratios"`
	WithTrend     bool     `json:"with_trend"`
	MAWindows     []int    `json:"ma_windows,omitempty"` // moving-average windows; empty uses the default
}

// Validate checks a data request before any fetch happens.
func (d DataSpec) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Ticker,
			validation.Required.Error("ticker is required"),
			validation.Match(tickerPattern).Error("ticker must be 1-12 characters: A-Z, digits, . - :")),
		validation.Field(&d.CompareTicker,
			validation.Match(tickerPattern).Error("comparison ticker must be 1-12 characters: A-Z, digits, . - :")),
		validation.Field(&d.Years,
			validation.Min(1).Error("years must be at least 1"),
			validation.Max(10).Error("years must be at most 10")),
		validation.Field(&d.Metrics,
			validation.Each(validation.By(knownMnemonic))),
	)
}

func knownMnemonic(value interface{}) error {
	s, _ := value.(string)
	if !ciq.IsKnownMnemonic(s) {
		return errors.New("unknown metric mnemonic: " + s)
	}
	return nil
}

// Selection controls what the preview page includes in an export.
type Selection struct {
	IncludeSlide bool `json:"include_slide"`
	IncludeChart bool `json:"include_chart"` // chart slides: render the chart; off falls back to a table
	IncludeCAGR  bool `json:"include_cagr"`  // chart slides with trend: add the growth chart
}

// DefaultSelection includes everything.
func DefaultSelection() Selection {
	return Selection{IncludeSlide: true, IncludeChart: true, IncludeCAGR: true}
}

// Slide is one entry in a deck. Chart and table slides carry the rows
// fetched when the slide was added or last updated, so exporting never
// refetches.
type Slide struct {
	ID          string    `json:"id"`
	Position    int       `json:"position"` // 1-based, contiguous within the deck
	Title       string    `json:"title"`
	Kind        Kind      `json:"kind"`
	Body        string    `json:"body,omitempty"`    // text slides
	Bullets     []string  `json:"bullets,omitempty"` // bullet slides
	Data        *DataSpec `json:"data,omitempty"`    // chart and table slides
	Rows        []ciq.Row `json:"rows,omitempty"`
	CompareRows []ciq.Row `json:"compare_rows,omitempty"`
	Selection   Selection `json:"selection"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks slide content for its kind.
func (s Slide) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 200).Error("title must be at most 200 characters")),
		validation.Field(&s.Kind,
			validation.Required,
			validation.In(KindText, KindBullets, KindChart, KindTable).Error("unknown slide kind")),
		validation.Field(&s.Body,
			validation.When(s.Kind == KindText,
				validation.Required.Error("text slides need body text"))),
		validation.Field(&s.Bullets,
			validation.When(s.Kind == KindBullets,
				validation.Required.Error("bullet slides need at least one bullet"),
				validation.Length(1, 20).Error("bullet slides allow at most 20 bullets")),
			validation.Each(validation.Required.Error("bullets must not be empty"))),
	)
	if err != nil {
		return err
	}
	if s.Kind.NeedsData() {
		if s.Data == nil {
			return errors.New(string(s.Kind) + " slides need a ticker and data selection")
		}
		return s.Data.Validate()
	}
	return nil
}

// HasComparison reports whether the slide compares two companies.
func (s *Slide) HasComparison() bool {
	return s.Data != nil && s.Data.CompareTicker != "" && len(s.CompareRows) > 0
}
