// Demo program walking one application through extraction, questioning
// and answering with the embedded catalog and an in-memory store
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/extract/adapters"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/util"
)

const passport = `Surname and given names: DOE, JANE
Date of birth: 14.03.1990
Nationality: Irish
Passport No: PX1234567
Date of expiry: 13 March 2031
`

const booking = `<html><body>
<h1>Reservation confirmed</h1>
<table>
  <tr><th>Hotel</th><td>Hotel Roma Centrale</td></tr>
  <tr><th>Check-in</th><td>2026-07-01</td></tr>
  <tr><th>Check-out</th><td>2026-07-09</td></tr>
  <tr><th>Guests</th><td>two</td></tr>
</table>
</body></html>`

func main() {
	fmt.Println("=== Dossier questionnaire demo ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cat, err := catalog.Default()
	if err != nil {
		fail(err)
	}
	logger := util.NewLogger(os.Stderr, false)
	runner := extract.NewRunner(cat, adapters.NewRegistry(nil), nil, 0, logger)
	p := pipeline.New(cat, store.NewMemory(), runner, nil, pipeline.Options{Logger: logger})

	const app = "DEMO-1"
	targets := []string{"cover_letter", "hotel_voucher"}

	docs := []extract.Document{
		{ID: "passport.txt", Category: "passport", Format: extract.FormatText, Content: passport},
		{ID: "booking.html", Category: "hotel_booking", Format: extract.FormatHTML, Content: booking},
	}
	for _, doc := range docs {
		facts, err := p.Extract(ctx, app, doc)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Extracted from %s:\n", doc.ID)
		fmt.Println(strings.Repeat("-", 60))
		for _, f := range facts {
			fmt.Printf("  %-34s %-24q %.2f\n", f.FactID, f.Value, f.Confidence)
		}
		fmt.Println()
	}

	renderer := pipeline.NewRenderer()
	report, err := p.Questionnaire(ctx, app, targets)
	if err != nil {
		fail(err)
	}
	renderer.RenderSummary(os.Stdout, report)
	fmt.Print(renderer.Markdown(report))

	// Answer the first open question and look again
	for _, q := range report.Questionnaire.Questions {
		if q.Kind != model.KindOpen || len(q.Choices) == 0 {
			continue
		}
		fmt.Printf("\nAnswering %s with %q\n", q.FactID, q.Choices[0])
		if _, err := p.Answer(ctx, app, q.FactID, q.Choices[0]); err != nil {
			fail(err)
		}
		break
	}

	report, err = p.Questionnaire(ctx, app, targets)
	if err != nil {
		fail(err)
	}
	renderer.RenderSummary(os.Stdout, report)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
