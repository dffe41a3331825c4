// Package pptx turns a deck of slides into a PowerPoint file. Slides
// map 1:1 onto presentation slides, wrapped by an opener and a closer
// that come from the configured template when one is readable.
package pptx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/deck"
)

// ErrNothingSelected is returned when the preview selection excludes
// every slide.
var ErrNothingSelected = errors.New("selection excludes every slide")

// DefaultTitle is used when no deck title is given.
const DefaultTitle = "Financial Analysis"

// Generator builds PowerPoint files from deck slides.
type Generator struct {
	templatePath string
	logger       *common.Logger
}

// NewGenerator creates a generator. templatePath may be empty or point
// to a missing file; the opener and closer are synthesized then.
func NewGenerator(templatePath string, logger *common.Logger) *Generator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Generator{templatePath: templatePath, logger: logger}
}

// Options tunes one build.
type Options struct {
	Title string // deck title for the opener and document properties
}

// Build renders the included slides to a PPTX byte buffer. An empty
// deck or an all-excluded selection is rejected.
func (g *Generator) Build(slides []deck.Slide, opts Options) ([]byte, error) {
	if len(slides) == 0 {
		return nil, deck.ErrEmptyDeck
	}
	var included []deck.Slide
	for _, s := range slides {
		if s.Selection.IncludeSlide {
			included = append(included, s)
		}
	}
	if len(included) == 0 {
		return nil, ErrNothingSelected
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle
	}

	texts := templateTexts{
		openerTitle: title,
		closerTitle: "Thank You",
	}
	if g.templatePath != "" {
		if t, err := readTemplateTexts(g.templatePath); err == nil {
			if t.hasOpener {
				texts.openerTitle = t.openerTitle
				texts.openerSubtitle = t.openerSubtitle
			}
			if t.hasCloser {
				texts.closerTitle = t.closerTitle
				texts.closerSubtitle = t.closerSubtitle
				texts.hasCloser = true
			}
		} else {
			g.logger.Warn().Err(err).Str("template", g.templatePath).Msg("Template not usable, synthesizing opener and closer")
		}
	}
	if texts.closerSubtitle == "" && !texts.hasCloser {
		texts.closerSubtitle = "Thank you for your attention"
	}

	p := ppt.New()
	p.GetDocumentProperties().Title = title
	p.GetDocumentProperties().Creator = "DeckSmith"

	g.addOpener(p, texts.openerTitle, texts.openerSubtitle)
	for _, s := range included {
		g.addContentSlide(p, s)
	}
	g.addCloser(p, texts.closerTitle, texts.closerSubtitle)

	w, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("creating pptx writer: %w", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing pptx: %w", err)
	}

	g.logger.Info().Int("slides", len(included)).Int("bytes", buf.Len()).Msg("Deck generated")
	return buf.Bytes(), nil
}

func solidFill(argb string) *ppt.Fill {
	return ppt.NewFill().SetSolid(ppt.NewColor(argb))
}

func alignCenter(p *ppt.Paragraph) {
	p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
}

func alignRight(p *ppt.Paragraph) {
	p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalRight))
}

// addOpener styles the first slide of a fresh presentation.
func (g *Generator) addOpener(p *ppt.Presentation, title, subtitle string) {
	slide := p.GetActiveSlide()

	topBar := slide.CreateRichTextShape()
	topBar.SetOffsetX(0).SetOffsetY(0)
	topBar.SetWidth(slideWidth).SetHeight(int64(0.15 * emuPerInch))
	topBar.SetFill(solidFill(colorBrand))

	titleShape := slide.CreateRichTextShape()
	titleShape.SetOffsetX(marginLeft).SetOffsetY(int64(1.6 * emuPerInch))
	titleShape.SetWidth(contentWidth).SetHeight(int64(1.0 * emuPerInch))
	tr := titleShape.CreateTextRun(title)
	tr.GetFont().SetSize(fontTitle).SetBold(true).SetColor(ppt.NewColor(colorBrand))
	alignCenter(titleShape.GetActiveParagraph())

	if subtitle != "" {
		subShape := slide.CreateRichTextShape()
		subShape.SetOffsetX(int64(1.0 * emuPerInch)).SetOffsetY(int64(2.8 * emuPerInch))
		subShape.SetWidth(int64(8.0 * emuPerInch)).SetHeight(int64(0.7 * emuPerInch))
		subShape.SetFill(solidFill(colorPanel))
		subTr := subShape.CreateTextRun(clip(subtitle, 90))
		subTr.GetFont().SetSize(fontSubtitle).SetColor(ppt.NewColor(colorMuted))
		alignCenter(subShape.GetActiveParagraph())
	}

	dateShape := slide.CreateRichTextShape()
	dateShape.SetOffsetX(marginLeft).SetOffsetY(int64(4.0 * emuPerInch))
	dateShape.SetWidth(contentWidth).SetHeight(int64(0.4 * emuPerInch))
	dateTr := dateShape.CreateTextRun(time.Now().Format("January 2, 2006"))
	dateTr.GetFont().SetSize(fontSmall).SetColor(ppt.NewColor(colorMuted))
	alignCenter(dateShape.GetActiveParagraph())

	bottomBar := slide.CreateRichTextShape()
	bottomBar.SetOffsetX(0).SetOffsetY(int64(5.5 * emuPerInch))
	bottomBar.SetWidth(slideWidth).SetHeight(int64(0.125 * emuPerInch))
	bottomBar.SetFill(solidFill(colorAccent))
}

// addCloser appends the final slide.
func (g *Generator) addCloser(p *ppt.Presentation, title, subtitle string) {
	slide := p.CreateSlide()

	topBar := slide.CreateRichTextShape()
	topBar.SetOffsetX(0).SetOffsetY(0)
	topBar.SetWidth(slideWidth).SetHeight(int64(0.15 * emuPerInch))
	topBar.SetFill(solidFill(colorBrand))

	thankShape := slide.CreateRichTextShape()
	thankShape.SetOffsetX(int64(1.0 * emuPerInch)).SetOffsetY(int64(2.0 * emuPerInch))
	thankShape.SetWidth(int64(8.0 * emuPerInch)).SetHeight(int64(1.0 * emuPerInch))
	thankTr := thankShape.CreateTextRun(title)
	thankTr.GetFont().SetSize(fontTitle).SetBold(true).SetColor(ppt.NewColor(colorBrand))
	alignCenter(thankShape.GetActiveParagraph())

	if subtitle != "" {
		subShape := slide.CreateRichTextShape()
		subShape.SetOffsetX(int64(1.0 * emuPerInch)).SetOffsetY(int64(3.2 * emuPerInch))
		subShape.SetWidth(int64(8.0 * emuPerInch)).SetHeight(int64(0.5 * emuPerInch))
		subTr := subShape.CreateTextRun(subtitle)
		subTr.GetFont().SetSize(18).SetColor(ppt.NewColor(colorMuted))
		alignCenter(subShape.GetActiveParagraph())
	}

	footerShape := slide.CreateRichTextShape()
	footerShape.SetOffsetX(marginLeft).SetOffsetY(int64(4.8 * emuPerInch))
	footerShape.SetWidth(contentWidth).SetHeight(int64(0.3 * emuPerInch))
	ftTr := footerShape.CreateTextRun("DeckSmith · " + time.Now().Format("2006"))
	ftTr.GetFont().SetSize(fontFooter).SetColor(ppt.NewColor(colorMuted))
	alignCenter(footerShape.GetActiveParagraph())

	bottomBar := slide.CreateRichTextShape()
	bottomBar.SetOffsetX(0).SetOffsetY(int64(5.5 * emuPerInch))
	bottomBar.SetWidth(slideWidth).SetHeight(int64(0.125 * emuPerInch))
	bottomBar.SetFill(solidFill(colorAccent))
}

// addHeading draws the accent bar and title at the top of a content
// slide.
func (g *Generator) addHeading(slide *ppt.Slide, title string) {
	topBar := slide.CreateRichTextShape()
	topBar.SetOffsetX(0).SetOffsetY(0)
	topBar.SetWidth(slideWidth).SetHeight(int64(0.08 * emuPerInch))
	topBar.SetFill(solidFill(colorBrand))

	titleShape := slide.CreateRichTextShape()
	titleShape.SetOffsetX(marginLeft).SetOffsetY(int64(0.25 * emuPerInch))
	titleShape.SetWidth(contentWidth).SetHeight(int64(0.6 * emuPerInch))
	tr := titleShape.CreateTextRun(clip(title, 70))
	tr.GetFont().SetSize(fontHeading).SetBold(true).SetColor(ppt.NewColor(colorBrand))
}

// slideTitle appends the ticker context to the user's title.
func slideTitle(s deck.Slide) string {
	if s.Data == nil {
		return s.Title
	}
	if s.Data.CompareTicker != "" {
		return fmt.Sprintf("%s - %s vs %s", s.Title, s.Data.Ticker, s.Data.CompareTicker)
	}
	return fmt.Sprintf("%s - %s", s.Title, s.Data.Ticker)
}

// addContentSlide renders one deck slide onto one presentation slide.
func (g *Generator) addContentSlide(p *ppt.Presentation, s deck.Slide) {
	slide := p.CreateSlide()
	g.addHeading(slide, slideTitle(s))

	switch s.Kind {
	case deck.KindText:
		g.addTextBody(slide, s.Body)
	case deck.KindBullets:
		g.addBullets(slide, s.Bullets)
	case deck.KindTable:
		g.addTable(slide, s)
	case deck.KindChart:
		if !s.Selection.IncludeChart {
			g.addTable(slide, s)
			return
		}
		if err := g.addCharts(slide, s); err != nil {
			g.logger.Warn().Err(err).Str("slide", s.ID).Msg("Chart render failed, falling back to table")
			g.addTable(slide, s)
		}
	}
}

// addTextBody writes wrapped body text below the heading.
func (g *Generator) addTextBody(slide *ppt.Slide, body string) {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(marginLeft).SetOffsetY(int64(1.1 * emuPerInch))
	shape.SetWidth(contentWidth).SetHeight(int64(4.2 * emuPerInch))

	first := true
	for _, line := range strings.Split(body, "\n") {
		for _, wrapped := range wrapText(line, 85) {
			if !first {
				shape.CreateParagraph()
			}
			first = false
			if strings.TrimSpace(wrapped) == "" {
				tr := shape.CreateTextRun(" ")
				tr.GetFont().SetSize(6)
				continue
			}
			tr := shape.CreateTextRun(wrapped)
			tr.GetFont().SetSize(fontBody).SetColor(ppt.NewColor(colorBody))
		}
	}
}

// addBullets writes one bulleted paragraph per item.
func (g *Generator) addBullets(slide *ppt.Slide, bullets []string) {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(marginLeft).SetOffsetY(int64(1.1 * emuPerInch))
	shape.SetWidth(contentWidth).SetHeight(int64(4.2 * emuPerInch))

	first := true
	for _, bullet := range bullets {
		for i, wrapped := range wrapText(bullet, 80) {
			if !first {
				shape.CreateParagraph()
			}
			first = false
			text := "• " + wrapped
			if i > 0 {
				text = "   " + wrapped
			}
			tr := shape.CreateTextRun(text)
			tr.GetFont().SetSize(fontBody).SetColor(ppt.NewColor(colorBody))
		}
	}
}

// wrapText breaks a line into chunks of at most width runes on word
// boundaries, splitting oversized words.
func wrapText(line string, width int) []string {
	if len([]rune(line)) <= width {
		return []string{line}
	}

	var out []string
	var cur strings.Builder
	curLen := 0
	for _, word := range strings.Fields(line) {
		runes := []rune(word)
		for len(runes) > width {
			if curLen > 0 {
				out = append(out, cur.String())
				cur.Reset()
				curLen = 0
			}
			out = append(out, string(runes[:width]))
			runes = runes[width:]
		}
		wl := len(runes)
		if curLen > 0 && curLen+1+wl > width {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(string(runes))
		curLen += wl
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}
