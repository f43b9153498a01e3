package unkrawerter

import (
	"testing"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
)

func TestChooseFormatSampleBased64Rows(t *testing.T) {
	mod := krawall.Module{Patterns: []krawall.Pattern{{Rows: 64}}}
	if got := ChooseFormat(mod); got != "s3m" {
		t.Errorf("ChooseFormat = %q, want s3m", got)
	}
}

func TestChooseFormatInstrumentBased(t *testing.T) {
	mod := krawall.Module{FlagInstrumentBased: true, Patterns: []krawall.Pattern{{Rows: 64}}}
	if got := ChooseFormat(mod); got != "xm" {
		t.Errorf("ChooseFormat = %q, want xm (instrument-based always goes to XM)", got)
	}
}

func TestChooseFormatWrongRowCount(t *testing.T) {
	mod := krawall.Module{Patterns: []krawall.Pattern{{Rows: 32}}}
	if got := ChooseFormat(mod); got != "xm" {
		t.Errorf("ChooseFormat = %q, want xm (S3M requires exactly 64 rows)", got)
	}
}

func TestChooseFormatNoPatterns(t *testing.T) {
	mod := krawall.Module{}
	if got := ChooseFormat(mod); got != "xm" {
		t.Errorf("ChooseFormat = %q, want xm", got)
	}
}
