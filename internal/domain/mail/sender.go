package mail

import "context"

// Message is a plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Sender delivers an email. Implementations live in internal/infra/mail.
type Sender interface {
	SendMail(ctx context.Context, msg Message) error
}
