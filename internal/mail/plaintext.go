package mail

import (
	"fmt"

	"github.com/jaytaylor/html2text"
)

// PlainText converts the HTML body of an alert to plain text for use as
// extraction input. Hyperlink targets are dropped (the link text is
// kept) and images are omitted. The conversion is one-way; nothing
// downstream ever needs the HTML back.
func PlainText(html string) (string, error) {
	text, err := html2text.FromString(html, html2text.Options{
		OmitLinks: true,
		TextOnly:  true,
	})
	if err != nil {
		return "", fmt.Errorf("PlainText: converting HTML: %w", err)
	}
	return text, nil
}
