package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"slotflow/models"
	"slotflow/writer"
)

func printAggregate(out io.Writer, rows []models.AggregateRow) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SLOT TYPE\tRISK BAND\tMEAN RETURN %\tSLOTS")
	for _, v := range writer.AggregateViews(rows) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", v.SlotType, v.RiskBand, percent(v.MeanReturn), v.Count)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func printRecommendations(out io.Writer, slots []models.SlotSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(writer.RecommendationColumns, "\t")))
	for _, r := range writer.Recommendations(slots) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.SlotType,
			slotID(r.SlotID),
			r.MiningSubject,
			r.RiskBand,
			percent(r.ReturnPercent),
			decimal.NewFromFloat(r.RecommendedWeight).String(),
			currency(r.AISuggestedDeposit),
		)
	}
	w.Flush()
}

func slotID(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).String()
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

func currency(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(2) + " Kč"
}
