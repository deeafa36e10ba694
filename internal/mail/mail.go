// Package mail delivers messages with attachments over SMTP or Amazon SES.
package mail

import (
	"bytes"
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Attachment is a named file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a plain-text mail with optional attachments.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers a Message. An error means delivery is unknown, not that
// the message was certainly not delivered.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// From identifies the sender of outgoing mail.
type From struct {
	Address string
	Name    string
}

func buildMessage(from From, msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()

	if from.Name != "" {
		if err := m.FromFormat(from.Name, from.Address); err != nil {
			return nil, fmt.Errorf("set from: %w", err)
		}
	} else if err := m.From(from.Address); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content),
			gomail.WithFileContentType(gomail.ContentType(contentType))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	return m, nil
}

// render returns the full MIME encoding of msg.
func render(from From, msg Message) ([]byte, error) {
	m, err := buildMessage(from, msg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render message: %w", err)
	}
	return buf.Bytes(), nil
}
