package mail

import (
	"bytes"
	"errors"
	"fmt"
	netmail "net/mail"
	"time"

	"github.com/jhillyerd/enmime"
)

// Message is the parsed form of one fetched alert email. It exists only
// for the duration of a single invocation.
type Message struct {
	SenderAddress string
	Subject       string
	HTMLBody      string
	Date          time.Time
}

// Terminal input errors. Each aborts the invocation before any ledger
// write is attempted.
var (
	ErrNoSender   = errors.New("mail: message has no sender")
	ErrNoDate     = errors.New("mail: message has no date")
	ErrNoHTMLBody = errors.New("mail: message has no HTML content")
)

// ParseMessage parses a raw RFC 822 message into a Message. The sender
// address, subject, date and HTML part are all required; there is no
// fallback to a text-only part.
func ParseMessage(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: reading envelope: %w", err)
	}

	from := env.GetHeader("From")
	if from == "" {
		return nil, ErrNoSender
	}
	addr, err := netmail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: invalid From header %q: %w", from, err)
	}

	dateHeader := env.GetHeader("Date")
	if dateHeader == "" {
		return nil, ErrNoDate
	}
	date, err := netmail.ParseDate(dateHeader)
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: invalid Date header %q: %w", dateHeader, err)
	}

	if env.HTML == "" {
		return nil, ErrNoHTMLBody
	}

	return &Message{
		SenderAddress: addr.Address,
		Subject:       env.GetHeader("Subject"),
		HTMLBody:      env.HTML,
		Date:          date,
	}, nil
}
