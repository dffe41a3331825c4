package tests

import (
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
)

func TestSmokeLandingNoJSErrors(t *testing.T) {
	ctx, cancel := newBrowser(t)
	defer cancel()

	errs := newJSErrorCollector(ctx)
	if err := navigateAndWait(ctx, serverURL()+"/"); err != nil {
		t.Fatal(err)
	}

	takeScreenshot(t, ctx, "smoke", "landing-no-js-errors.png")

	if jsErrs := errs.Errors(); len(jsErrs) > 0 {
		t.Errorf("JS errors on landing page:\n  %s", strings.Join(jsErrs, "\n  "))
	}
}

func TestSmokeLandingBranding(t *testing.T) {
	ctx, cancel := newBrowser(t)
	defer cancel()

	var brand string
	err := chromedp.Run(ctx,
		chromedp.Navigate(serverURL()+"/"),
		chromedp.WaitVisible(".landing-title", chromedp.ByQuery),
		chromedp.Text(".landing-title", &brand, chromedp.ByQuery),
	)
	if err != nil {
		t.Fatal(err)
	}

	takeScreenshot(t, ctx, "smoke", "landing-branding.png")

	if !strings.Contains(brand, "DeckSmith") {
		t.Errorf("landing title = %q, want contains DeckSmith", brand)
	}
}

func TestSmokeLandingCards(t *testing.T) {
	ctx, cancel := newBrowser(t)
	defer cancel()

	if err := navigateAndWait(ctx, serverURL()+"/"); err != nil {
		t.Fatal(err)
	}

	takeScreenshot(t, ctx, "smoke", "landing-cards.png")

	count, err := elementCount(ctx, ".landing-cards .card")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("landing card count = %d, want 3", count)
	}

	for _, href := range []string{"/builder", "/preview", "/config"} {
		visible, err := isVisible(ctx, `.landing-cards a[href="`+href+`"]`)
		if err != nil {
			t.Fatal(err)
		}
		if !visible {
			t.Errorf("landing card linking %s not visible", href)
		}
	}
}

func TestSmokeCSSLoaded(t *testing.T) {
	ctx, cancel := newBrowser(t)
	defer cancel()

	var fontFamily string
	err := chromedp.Run(ctx,
		chromedp.Navigate(serverURL()+"/"),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Evaluate(`getComputedStyle(document.body).fontFamily`, &fontFamily),
	)
	if err != nil {
		t.Fatal(err)
	}

	takeScreenshot(t, ctx, "smoke", "css-loaded.png")

	ff := strings.ToLower(fontFamily)
	if !strings.Contains(ff, "segoe ui") && !strings.Contains(ff, "sans-serif") {
		t.Errorf("font-family = %q, want the portal sans-serif stack", fontFamily)
	}
}

func TestSmokeFooterVersionDisplay(t *testing.T) {
	ctx, cancel := newBrowser(t)
	defer cancel()

	if err := navigateAndWait(ctx, serverURL()+"/"); err != nil {
		t.Fatal(err)
	}

	takeScreenshot(t, ctx, "smoke", "footer-version-display.png")

	if err := assertTextContains(ctx, ".footer", "DeckSmith v", "footer version"); err != nil {
		t.Error(err)
	}
}
