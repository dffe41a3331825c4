package pptx

// 16:9 slide geometry in EMU.
const (
	emuPerInch = 914400

	marginLeft = int64(0.4 * emuPerInch)

	slideWidth    = int64(10.0 * emuPerInch)
	slideHeight   = int64(5.625 * emuPerInch)
	contentWidth  = int64(9.2 * emuPerInch)
	contentHeight = int64(4.9 * emuPerInch)
)

// Font sizes in points.
const (
	fontTitle     = 36
	fontHeading   = 28
	fontSubtitle  = 20
	fontBody      = 14
	fontSmall     = 12
	fontTableHead = 12
	fontTableCell = 10
	fontFooter    = 9
)

// Brand colors as ARGB hex.
const (
	colorBrand      = "FF005F6B" // teal accents and titles
	colorAccent     = "FFF6A628" // amber highlights
	colorHeaderFill = "FF5C9EAD" // table header rows
	colorZebra      = "FFEBF1F3" // alternating table rows
	colorBody       = "FF333333"
	colorMuted      = "FF6B7B8A"
	colorPanel      = "FFF4F7F8" // subtitle panel on the opener
)

// rect positions an image or shape in inches.
type rect struct {
	x, y, w, h float64
}

func (r rect) emuX() int64 { return int64(r.x * emuPerInch) }
func (r rect) emuY() int64 { return int64(r.y * emuPerInch) }
func (r rect) emuW() int64 { return int64(r.w * emuPerInch) }
func (r rect) emuH() int64 { return int64(r.h * emuPerInch) }

// chartRects lays out 1 to 3 chart images in the content area below
// the heading, keeping them close to 16:9.
func chartRects(n int) []rect {
	switch n {
	case 1:
		return []rect{{0.5, 1.0, 9.0, 4.1}}
	case 2:
		return []rect{
			{0.3, 1.5, 4.6, 2.59},
			{5.1, 1.5, 4.6, 2.59},
		}
	default:
		return []rect{
			{0.3, 1.0, 4.6, 2.0},
			{5.1, 1.0, 4.6, 2.0},
			{2.7, 3.15, 4.6, 2.0},
		}
	}
}

// clip shortens a cell value to fit its column, marking the cut.
func clip(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-2]) + ".."
}
