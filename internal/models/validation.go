package models

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits shared by the server and the client flow.
const (
	MinMessageLength = 10
	MaxMessageLength = 2000
	MaxPhoneLength   = 40
	MaxReasonLength  = 500
	MaxTitleLength   = 200
)

// Validate returns the problems that prevent the request from being sent.
// An empty slice means the request is acceptable.
func (r NewContactRequest) Validate() []string {
	var problems []string
	if r.ProductID <= 0 {
		problems = append(problems, "productId is required")
	}
	if !r.NDAAccepted {
		problems = append(problems, "the NDA must be accepted before contacting the seller")
	}
	problems = append(problems, ValidateMessage(r.Message)...)
	if r.ContactPhone != nil && utf8.RuneCountInString(*r.ContactPhone) > MaxPhoneLength {
		problems = append(problems, fmt.Sprintf("contactPhone must be at most %d characters", MaxPhoneLength))
	}
	return problems
}

// ValidateMessage checks a contact message body.
func ValidateMessage(message string) []string {
	n := utf8.RuneCountInString(strings.TrimSpace(message))
	switch {
	case n == 0:
		return []string{"message is required"}
	case n < MinMessageLength:
		return []string{fmt.Sprintf("message must be at least %d characters", MinMessageLength)}
	case n > MaxMessageLength:
		return []string{fmt.Sprintf("message must be at most %d characters", MaxMessageLength)}
	}
	return nil
}

// ValidateReason checks a rejection reason. Blank is allowed unless required.
func ValidateReason(reason string, required bool) []string {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		if required {
			return []string{"rejectionReason is required when rejecting"}
		}
		return nil
	}
	if utf8.RuneCountInString(trimmed) > MaxReasonLength {
		return []string{fmt.Sprintf("rejectionReason must be at most %d characters", MaxReasonLength)}
	}
	return nil
}

// Validate checks the registration payload.
func (r CompanyRequest) Validate() []string {
	var problems []string
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !isDigits(r.TaxNumber) || (len(r.TaxNumber) != 10 && len(r.TaxNumber) != 11) {
		problems = append(problems, "taxNumber must be 10 or 11 digits")
	}
	if !isDigits(r.MersisNumber) || len(r.MersisNumber) != 16 {
		problems = append(problems, "mersisNumber must be 16 digits")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		problems = append(problems, "email is not valid")
	}
	if utf8.RuneCountInString(r.Phone) > MaxPhoneLength {
		problems = append(problems, fmt.Sprintf("phone must be at most %d characters", MaxPhoneLength))
	}
	return problems
}

// Validate checks the editable profile fields.
func (u CompanyUpdate) Validate() []string {
	var problems []string
	if u.TouchesLegalIdentity() {
		problems = append(problems, "name, taxNumber and mersisNumber cannot be changed")
	}
	if u.Empty() {
		problems = append(problems, "no editable field provided")
	}
	if u.Email != nil && !strings.Contains(*u.Email, "@") {
		problems = append(problems, "email is not valid")
	}
	if u.Phone != nil && utf8.RuneCountInString(*u.Phone) > MaxPhoneLength {
		problems = append(problems, fmt.Sprintf("phone must be at most %d characters", MaxPhoneLength))
	}
	return problems
}

// Validate checks the product payload.
func (r ProductRequest) Validate() []string {
	var problems []string
	title := strings.TrimSpace(r.Title)
	if title == "" {
		problems = append(problems, "title is required")
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if r.Quantity <= 0 {
		problems = append(problems, "quantity must be positive")
	}
	if r.UnitPrice < 0 {
		problems = append(problems, "unitPrice must not be negative")
	}
	if len(r.Currency) != 3 || !isLetters(r.Currency) {
		problems = append(problems, "currency must be a 3-letter code")
	}
	return problems
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
