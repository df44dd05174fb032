package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/erni-gruppe/building-agents/core"
)

// PIIGuardrailName is the stable name reported for PII output checks.
const PIIGuardrailName = "PII Guardrail"

// Organizational contact data that is always allowed to appear in replies.
var (
	allowedEmails = map[string]bool{
		"info@erni-gruppe.ch": true,
	}
	// Phone numbers compared by normalized national significant digits.
	allowedPhoneDigits = map[string]bool{
		"415707070": true, // 041 570 70 70
	}
	allowedAddresses = []string{
		"guggibadstrasse 8",
		"6288 schongau",
	}
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`(\+41|0041|0)[\s.-]?\d{2}[\s.-]?\d{3}[\s.-]?\d{2}[\s.-]?\d{2}`)
	cardPattern   = regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`)
	ahvPattern    = regexp.MustCompile(`\b756\.\d{4}\.\d{4}\.\d{2}\b`)
	streetPattern = regexp.MustCompile(`\b[A-ZÄÖÜ][a-zäöü]+(?:strasse|weg|gasse|platz)\s+\d+\b`)
	digitsOnly    = regexp.MustCompile(`\D`)
)

// PIIGuardrail is a deterministic output screen: it pattern-matches classes
// of personal data and trips unless every hit is on the organizational
// allow-list. It fails closed by construction, needing no upstream call.
type PIIGuardrail struct{}

// NewPIIGuardrail creates the output screen.
func NewPIIGuardrail() *PIIGuardrail { return &PIIGuardrail{} }

// Name implements OutputGuardrail.
func (g *PIIGuardrail) Name() string { return PIIGuardrailName }

// Inspect implements OutputGuardrail. Contact data the customer supplied
// during the conversation (recorded in the project context) is treated like
// the organizational allow-list: repeating it back is confirmation, not
// disclosure.
func (g *PIIGuardrail) Inspect(_ context.Context, output string, pc *core.ProjectContext) Verdict {
	var found []string

	customerEmail := ""
	customerPhoneDigits := ""
	if pc != nil {
		if pc.CustomerEmail != nil {
			customerEmail = strings.ToLower(*pc.CustomerEmail)
		}
		if pc.CustomerPhone != nil {
			customerPhoneDigits = normalizePhone(*pc.CustomerPhone)
		}
	}

	for _, email := range emailPattern.FindAllString(output, -1) {
		lower := strings.ToLower(email)
		if !allowedEmails[lower] && lower != customerEmail {
			found = append(found, "email")
			break
		}
	}

	for _, phone := range phonePattern.FindAllString(output, -1) {
		digits := normalizePhone(phone)
		if !allowedPhoneDigits[digits] && digits != customerPhoneDigits {
			found = append(found, "phone")
			break
		}
	}

	if cardPattern.MatchString(output) {
		found = append(found, "payment_card")
	}
	if ahvPattern.MatchString(output) {
		found = append(found, "social_security")
	}

	for _, street := range streetPattern.FindAllString(output, -1) {
		if !isAllowedAddress(street) {
			found = append(found, "address")
			break
		}
	}

	if len(found) > 0 {
		return Verdict{
			Passed:    false,
			Reasoning: fmt.Sprintf("response contains %s outside the published company contact data", strings.Join(found, ", ")),
		}
	}
	return Verdict{Passed: true}
}

// normalizePhone reduces a phone string to its national significant digits.
func normalizePhone(phone string) string {
	digits := digitsOnly.ReplaceAllString(phone, "")
	digits = strings.TrimPrefix(digits, "0041")
	digits = strings.TrimPrefix(digits, "41")
	digits = strings.TrimPrefix(digits, "0")
	return digits
}

func isAllowedAddress(street string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(street), " "))
	for _, allowed := range allowedAddresses {
		if normalized == allowed {
			return true
		}
	}
	return false
}

// Compile-time interface assertion.
var _ OutputGuardrail = (*PIIGuardrail)(nil)
