package deck

import (
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", k, err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %q", k, got)
		}
	}
	if _, err := ParseKind("video"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestKindLabels(t *testing.T) {
	tests := map[Kind]string{
		KindText:    "Text Block",
		KindBullets: "Bullet List",
		KindChart:   "Chart",
		KindTable:   "Table",
	}
	for kind, want := range tests {
		if got := kind.Label(); got != want {
			t.Errorf("%s label = %q, want %q", kind, got, want)
		}
	}
}

func TestKindNeedsData(t *testing.T) {
	if KindText.NeedsData() || KindBullets.NeedsData() {
		t.Error("text and bullet slides carry no data request")
	}
	if !KindChart.NeedsData() || !KindTable.NeedsData() {
		t.Error("chart and table slides need a data request")
	}
}

func TestSlideValidate(t *testing.T) {
	tests := []struct {
		name    string
		slide   Slide
		wantErr string
	}{
		{
			name:  "valid text slide",
			slide: Slide{Title: "Intro", Kind: KindText, Body: "Welcome"},
		},
		{
			name:  "valid bullet slide",
			slide: Slide{Title: "Points", Kind: KindBullets, Bullets: []string{"a", "b"}},
		},
		{
			name: "valid chart slide",
			slide: Slide{Title: "Revenue", Kind: KindChart, Data: &DataSpec{
				Ticker: "AAPL", Years: 5, Metrics: []string{"IQ_TOTAL_REV"},
			}},
		},
		{
			name:    "missing title",
			slide:   Slide{Kind: KindText, Body: "x"},
			wantErr: "title is required",
		},
		{
			name:    "overlong title",
			slide:   Slide{Title: strings.Repeat("x", 201), Kind: KindText, Body: "x"},
			wantErr: "title must be at most 200 characters",
		},
		{
			name:    "text slide without body",
			slide:   Slide{Title: "Intro", Kind: KindText},
			wantErr: "text slides need body text",
		},
		{
			name:    "bullet slide without bullets",
			slide:   Slide{Title: "Points", Kind: KindBullets},
			wantErr: "bullet slides need at least one bullet",
		},
		{
			name:    "empty bullet",
			slide:   Slide{Title: "Points", Kind: KindBullets, Bullets: []string{"a", ""}},
			wantErr: "bullets must not be empty",
		},
		{
			name:    "chart slide without data",
			slide:   Slide{Title: "Revenue", Kind: KindChart},
			wantErr: "chart slides need a ticker",
		},
		{
			name: "chart slide without ticker",
			slide: Slide{Title: "Revenue", Kind: KindChart, Data: &DataSpec{
				Years: 5,
			}},
			wantErr: "ticker is required",
		},
		{
			name:    "unknown kind",
			slide:   Slide{Title: "x", Kind: Kind("video"), Body: "x"},
			wantErr: "unknown slide kind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slide.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDataSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    DataSpec
		wantErr string
	}{
		{
			name: "valid",
			spec: DataSpec{Ticker: "AAPL", Years: 5, Metrics: []string{"IQ_TOTAL_REV", "IQ_NI"}},
		},
		{
			name: "valid with comparison and punctuated ticker",
			spec: DataSpec{Ticker: "BRK.B", CompareTicker: "ASX:CBA", Years: 3},
		},
		{
			name:    "lowercase ticker rejected",
			spec:    DataSpec{Ticker: "aapl", Years: 5},
			wantErr: "ticker must be",
		},
		{
			name:    "overlong ticker",
			spec:    DataSpec{Ticker: "ABCDEFGHIJKLM", Years: 5},
			wantErr: "ticker must be",
		},
		{
			name:    "years too small",
			spec:    DataSpec{Ticker: "AAPL", Years: 0},
			wantErr: "years must be at least 1",
		},
		{
			name:    "years too large",
			spec:    DataSpec{Ticker: "AAPL", Years: 11},
			wantErr: "years must be at most 10",
		},
		{
			name:    "unknown metric",
			spec:    DataSpec{Ticker: "AAPL", Years: 5, Metrics: []string{"IQ_BOGUS"}},
			wantErr: "unknown metric mnemonic",
		},
		{
			name:    "bad comparison ticker",
			spec:    DataSpec{Ticker: "AAPL", CompareTicker: "msft!", Years: 5},
			wantErr: "comparison ticker must be",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
