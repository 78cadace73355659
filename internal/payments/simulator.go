package payments

import (
	"regexp"
	"strings"

	"example.com/restaurant/services/ordering/config"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/postcode"
)

var expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
var digitsRe = regexp.MustCompile(`^\d+$`)

// Card is the payment form input. Agreed records the customer ticking the
// payment authorisation box.
type Card struct {
	Name            string
	Number          string
	Expiry          string
	CVC             string
	BillingPostcode string
	Agreed          bool
}

// Simulator makes the simulated payment decision. No money moves: a payment
// is declined iff the card number equals the configured declined sentinel,
// everything else that passes syntax checks is authorised. Deterministic so
// both outcomes are reachable in tests.
type Simulator struct {
	declinedCard string
}

// NewSimulator creates a simulated payment processor
func NewSimulator(cfg config.PaymentConfig) *Simulator {
	return &Simulator{declinedCard: cfg.DeclinedCard}
}

// Validate checks the card fields. These are input errors, not declines.
func (s *Simulator) Validate(card Card) error {
	number := strings.ReplaceAll(strings.TrimSpace(card.Number), " ", "")

	if strings.TrimSpace(card.Name) == "" {
		return faults.Validation("name on card is required")
	}
	if !digitsRe.MatchString(number) || len(number) < 12 || len(number) > 19 {
		return faults.Validation("card number looks invalid (digits only, 12-19 digits)")
	}
	if !expiryRe.MatchString(strings.TrimSpace(card.Expiry)) {
		return faults.Validation("expiry must be in MM/YY format")
	}
	cvc := strings.TrimSpace(card.CVC)
	if !digitsRe.MatchString(cvc) || (len(cvc) != 3 && len(cvc) != 4) {
		return faults.Validation("CVC looks invalid (3 or 4 digits)")
	}
	if !postcode.IsValid(card.BillingPostcode) {
		return faults.Validation("billing postcode must be a valid UK postcode")
	}
	if !card.Agreed {
		return faults.Validation("you must authorise the payment")
	}
	return nil
}

// Authorize returns the simulated payment decision for a validated card.
func (s *Simulator) Authorize(card Card) bool {
	number := strings.ReplaceAll(strings.TrimSpace(card.Number), " ", "")
	return number != s.declinedCard
}
