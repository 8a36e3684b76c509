// Package catalogtest provides small catalogs for tests.
package catalogtest

import (
	"testing"

	"github.com/ppiankov/dossier/internal/catalog"
)

// TravelYAML declares a cover letter and a hotel voucher. The voucher's hotel
// name is unconditional; accommodation.preferred_hotel only matters when the
// applicant has no booking.
const TravelYAML = `
categories:
  - id: identity
    title: Personal details
  - id: travel
    title: Trip details
  - id: accommodation
    title: Where you will stay
facts:
  - id: identity.full_name
    prompt: What is your full name?
    type: short_text
    tier: critical
    category: identity
    aliases: [full name, name]
  - id: travel.purpose
    prompt: What is the purpose of your trip?
    type: short_text
    tier: important
    category: travel
    aliases: [purpose of travel, purpose]
  - id: travel.hotel_name
    prompt: What is the name of your hotel?
    type: short_text
    tier: important
    category: travel
    aliases: [hotel name, hotel]
  - id: travel.arrival_date
    prompt: When do you arrive?
    type: date
    tier: critical
    category: travel
    aliases: [arrival date]
  - id: travel.party_size
    prompt: How many people are travelling?
    type: number
    tier: optional
    category: travel
  - id: accommodation.has_booking
    prompt: Do you have a booking?
    type: single_choice
    tier: important
    category: accommodation
    choices: ["yes", "no"]
  - id: accommodation.preferred_hotel
    prompt: Which hotel would you prefer?
    type: short_text
    tier: optional
    category: accommodation
    parent: accommodation.has_booking
    show_when: ["no"]
artifacts:
  - id: cover_letter
    title: Cover letter
    facts: [identity.full_name, travel.purpose]
  - id: hotel_voucher
    title: Hotel voucher
    facts: [travel.hotel_name]
  - id: itinerary
    title: Itinerary
    facts: [identity.full_name, travel.arrival_date, travel.party_size, accommodation.preferred_hotel]
`

// Travel parses TravelYAML and fails the test on error
func Travel(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(TravelYAML))
	if err != nil {
		t.Fatalf("parse travel catalog: %v", err)
	}
	return c
}
