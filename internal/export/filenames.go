// Package export produces the downloadable artifacts: deck and
// single-slide PowerPoint names, CSV rows, and Excel workbooks.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/decksmithhq/decksmith/internal/deck"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilePart keeps download names safe for Content-Disposition
// and ordinary filesystems.
func sanitizeFilePart(s string) string {
	return unsafeFileChars.ReplaceAllString(s, "_")
}

// DeckFilename names a full-deck download.
func DeckFilename(t time.Time) string {
	return "financial_deck_" + t.Format("20060102_150405") + ".pptx"
}

// slideBase derives the leading file-name token for a slide: ticker,
// ticker_vs_ticker2, or the slide ID for non-financial slides.
func slideBase(s deck.Slide) string {
	if s.Data == nil || s.Data.Ticker == "" {
		return s.ID
	}
	if s.Data.CompareTicker != "" {
		return fmt.Sprintf("%s_vs_%s", s.Data.Ticker, s.Data.CompareTicker)
	}
	return s.Data.Ticker
}

// SlideDeckFilename names a single-slide presentation download.
func SlideDeckFilename(s deck.Slide) string {
	return sanitizeFilePart(fmt.Sprintf("%s_%s_presentation", slideBase(s), s.Kind)) + ".pptx"
}

// DataFilename names a CSV or XLSX download for one slide's data.
func DataFilename(s deck.Slide, ext string) string {
	return sanitizeFilePart(slideBase(s)+"_financial_data") + "." + strings.TrimPrefix(ext, ".")
}

// WorkbookFilename names the all-slides Excel download.
func WorkbookFilename(t time.Time) string {
	return "financial_data_" + t.Format("20060102_150405") + ".xlsx"
}
