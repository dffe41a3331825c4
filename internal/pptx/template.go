package pptx

import (
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"
)

// templateTexts carries the opener and closer wording lifted from a
// template file. Formatting is not preserved; the deck restyles the
// text with its own layout.
type templateTexts struct {
	openerTitle    string
	openerSubtitle string
	closerTitle    string
	closerSubtitle string
	hasOpener      bool
	hasCloser      bool
}

// readTemplateTexts extracts the first slide's text as the opener and
// the last slide's text as the closer. A single-slide template only
// provides an opener.
func readTemplateTexts(path string) (templateTexts, error) {
	var t templateTexts

	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		return t, fmt.Errorf("reading template: %w", err)
	}

	slides := pres.GetAllSlides()
	if len(slides) == 0 {
		return t, fmt.Errorf("template %s has no slides", path)
	}

	if title, subtitle, ok := slideTexts(slides[0]); ok {
		t.openerTitle, t.openerSubtitle = title, subtitle
		t.hasOpener = true
	}
	if len(slides) > 1 {
		if title, subtitle, ok := slideTexts(slides[len(slides)-1]); ok {
			t.closerTitle, t.closerSubtitle = title, subtitle
			t.hasCloser = true
		}
	}
	return t, nil
}

// slideTexts returns the first non-empty line as the title and the
// second as the subtitle.
func slideTexts(slide *ppt.Slide) (title, subtitle string, ok bool) {
	var lines []string
	for _, shape := range slide.GetShapes() {
		rts, isText := shape.(*ppt.RichTextShape)
		if !isText {
			continue
		}
		for _, para := range rts.GetParagraphs() {
			var text string
			for _, elem := range para.GetElements() {
				if run, isRun := elem.(*ppt.TextRun); isRun {
					text += run.GetText()
				}
			}
			text = strings.TrimSpace(text)
			if text != "" {
				lines = append(lines, text)
			}
		}
	}

	if len(lines) == 0 {
		return "", "", false
	}
	title = lines[0]
	if len(lines) > 1 {
		subtitle = lines[1]
	}
	return title, subtitle, true
}
