package reporting

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// FormatSummary renders a summary as a short chat message.
func FormatSummary(s models.PeriodSummary) string {
	name := string(s.Pipeline)
	if p, ok := models.LookupPipeline(s.Pipeline); ok {
		name = p.Name
	}

	if s.DayCount == 0 {
		return fmt.Sprintf("%s (%s to %s): no records yet.", name, s.Period.Start, s.Period.End)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s to %s), %d days recorded\n", name, s.Period.Start, s.Period.End, s.DayCount)
	fmt.Fprintf(&b, "Raw input %s, cost %s\n", s.RawInput.String(), s.RawCost.StringFixed(2))
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "- %s: produced %s, shipped %s, revenue %s, surplus %s\n",
			c.Category, c.Produced.String(), c.Shipped.String(), c.Revenue.StringFixed(2), c.ClosingSurplus.String())
	}
	fmt.Fprintf(&b, "Revenue (%s) %s, net %s", s.Basis, s.Revenue.StringFixed(2), s.NetResult.StringFixed(2))
	if s.ShortfallDays > 0 {
		fmt.Fprintf(&b, "\nWarning: shipments exceeded stock on %d days.", s.ShortfallDays)
	}
	return b.String()
}

// FormatRecord renders one ledger day as a chat reply.
func FormatRecord(rec models.LedgerRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: raw %s @ %s\n", rec.Pipeline, rec.Date, rec.RawInput.String(), rec.RawUnitPrice.StringFixed(2))
	for _, l := range rec.Lines {
		fmt.Fprintf(&b, "- %s: opening %s + produced %s - shipped %s = surplus %s",
			l.Category, l.OpeningCarryOver.String(), l.Produced.String(), l.Shipped.String(), l.ClosingSurplus.String())
		if l.Shortfall.IsPositive() {
			fmt.Fprintf(&b, " (short %s)", l.Shortfall.String())
		}
		b.WriteString("\n")
	}
	if rec.Note != "" {
		fmt.Fprintf(&b, "Note: %s", rec.Note)
	}
	return strings.TrimRight(b.String(), "\n")
}
