package models

import "strings"

// Envelope is the uniform response wrapper shared by every endpoint.
type Envelope struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message,omitempty"`
	Code            string           `json:"code,omitempty"`
	Errors          []string         `json:"errors,omitempty"`
	Company         *Company         `json:"company,omitempty"`
	Companies       []Company        `json:"companies,omitempty"`
	Product         *Product         `json:"product,omitempty"`
	Products        []Product        `json:"products,omitempty"`
	ContactRequest  *ContactRequest  `json:"contactRequest,omitempty"`
	ContactRequests []ContactRequest `json:"contactRequests,omitempty"`
}

// ErrorText returns the text to show for a failed envelope: joined field
// errors take precedence over the generic message.
func (e Envelope) ErrorText() string {
	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	return e.Message
}
