package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	gospreadsheet "github.com/VantageDataChat/GoExcel"

	"github.com/decksmithhq/decksmith/internal/analysis"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// ErrNoFinancialSlides is returned when a workbook export finds no
// slide with fetched data.
var ErrNoFinancialSlides = errors.New("deck has no financial data to export")

const sheetNameLimit = 31

var sheetNameReplacer = strings.NewReplacer(":", "-", "/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")")

// headerStyle is the brand header row: white bold on teal.
func headerStyle() *gospreadsheet.Style {
	return gospreadsheet.NewStyle().
		SetFont(&gospreadsheet.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
			Name:  "Calibri",
		}).
		SetFill(&gospreadsheet.Fill{
			Type:  "solid",
			Color: "5C9EAD",
		}).
		SetAlignment(&gospreadsheet.Alignment{
			Horizontal: gospreadsheet.AlignCenter,
			Vertical:   gospreadsheet.AlignMiddle,
		}).
		SetBorders(&gospreadsheet.Borders{
			Left:   gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "FFFFFF"},
			Top:    gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "FFFFFF"},
			Bottom: gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "FFFFFF"},
			Right:  gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "FFFFFF"},
		})
}

func dataStyle(zebra bool) *gospreadsheet.Style {
	style := gospreadsheet.NewStyle().
		SetFont(&gospreadsheet.Font{
			Size: 10,
			Name: "Calibri",
		}).
		SetAlignment(&gospreadsheet.Alignment{
			Horizontal: gospreadsheet.AlignRight,
			Vertical:   gospreadsheet.AlignMiddle,
		}).
		SetBorders(&gospreadsheet.Borders{
			Left:   gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "D9D9D9"},
			Top:    gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "D9D9D9"},
			Bottom: gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "D9D9D9"},
			Right:  gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: "D9D9D9"},
		})
	if zebra {
		style = style.SetFill(&gospreadsheet.Fill{
			Type:  "solid",
			Color: "EBF1F3",
		})
	}
	return style
}

// sheetName derives a legal, unique Excel sheet name for a slide.
func sheetName(s deck.Slide, used map[string]int) string {
	base := sheetNameReplacer.Replace(slideBase(s))
	if base == "" {
		base = "Data"
	}
	if len(base) > sheetNameLimit-5 {
		base = base[:sheetNameLimit-5]
	}
	used[base]++
	if used[base] > 1 {
		return fmt.Sprintf("%s (%d)", base, used[base])
	}
	return base
}

// writeSheet fills one worksheet with a slide's data grid.
func writeSheet(ws *gospreadsheet.Worksheet, s deck.Slide) {
	cols := slideColumns(s)
	years := slideYears(s)
	primary := analysis.MetricsByYear(s.Rows)
	secondary := analysis.MetricsByYear(s.CompareRows)

	header := headerStyle()
	plain := dataStyle(false)
	zebra := dataStyle(true)

	cellName, _ := gospreadsheet.CellName(0, 0)
	ws.SetCellValue(cellName, "Year")
	ws.SetCellStyle(cellName, header)
	ws.SetColumnWidth(0, 10)
	for i, col := range cols {
		cellName, _ := gospreadsheet.CellName(0, i+1)
		ws.SetCellValue(cellName, col.header)
		ws.SetCellStyle(cellName, header)

		width := float64(len([]rune(col.header))) * 1.3
		if width < 14 {
			width = 14
		}
		if width > 40 {
			width = 40
		}
		ws.SetColumnWidth(i+1, width)
	}
	ws.SetRowHeight(0, 24)

	for rowIdx, year := range years {
		excelRow := rowIdx + 1
		style := plain
		if rowIdx%2 == 0 {
			style = zebra
		}

		cellName, _ := gospreadsheet.CellName(excelRow, 0)
		ws.SetCellValue(cellName, year)
		ws.SetCellStyle(cellName, style)

		for colIdx, col := range cols {
			cellName, _ := gospreadsheet.CellName(excelRow, colIdx+1)
			if v, ok := cellValue(s, primary, secondary, year, col); ok {
				ws.SetCellValue(cellName, v)
			}
			ws.SetCellStyle(cellName, style)
		}
		ws.SetRowHeight(excelRow, 18)
	}

	ws.FreezePane("A2")
}

func writeWorkbook(wb *gospreadsheet.Workbook) ([]byte, error) {
	wb.Properties.Title = "Financial Data"
	wb.Properties.Creator = "DeckSmith"

	var buf bytes.Buffer
	writer := gospreadsheet.NewXLSXWriter()
	if err := writer.Write(wb, &buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SlideWorkbook renders one slide's data as a single-sheet workbook.
func SlideWorkbook(s deck.Slide) ([]byte, error) {
	if len(s.Rows) == 0 {
		return nil, ErrNoData
	}

	wb := gospreadsheet.New()
	ws := wb.GetActiveSheet()
	ws.SetTitle(sheetName(s, map[string]int{}))
	writeSheet(ws, s)
	return writeWorkbook(wb)
}

// DeckWorkbook renders every financial slide to its own sheet.
func DeckWorkbook(slides []deck.Slide) ([]byte, error) {
	var financial []deck.Slide
	for _, s := range slides {
		if len(s.Rows) > 0 {
			financial = append(financial, s)
		}
	}
	if len(financial) == 0 {
		return nil, ErrNoFinancialSlides
	}

	wb := gospreadsheet.New()
	used := map[string]int{}
	for i, s := range financial {
		name := sheetName(s, used)
		var ws *gospreadsheet.Worksheet
		if i == 0 {
			ws = wb.GetActiveSheet()
			ws.SetTitle(name)
		} else {
			var err error
			ws, err = wb.AddSheet(name)
			if err != nil {
				return nil, fmt.Errorf("adding sheet %s: %w", name, err)
			}
		}
		writeSheet(ws, s)
	}
	return writeWorkbook(wb)
}
