package formatter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

var hundred = decimal.NewFromInt(100)

// RenderProgress renders a bar like [████░░░░]  45% for a percentage in
// 0..100. Green above two thirds, yellow above one third, red below.
func RenderProgress(pct decimal.Decimal, width int) string {
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if width < 2 {
		width = 2
	}

	filled := int(pct.Mul(decimal.NewFromInt(int64(width))).Div(hundred).IntPart())
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	switch {
	case pct.LessThan(decimal.NewFromInt(33)):
		style = StyleRed
	case pct.LessThan(decimal.NewFromInt(66)):
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3s%%", style.Render(bar), pct.Round(0).String())
}
