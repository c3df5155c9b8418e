package domain

import "strings"

// Message is one normalized chat message.
type Message struct {
	From   string `json:"from"`
	FromMe bool   `json:"fromMe"`
	Body   string `json:"body"`
}

// Chat is one conversation with its most recent messages.
// Message order is whatever the engine returned; it is not re-sorted.
type Chat struct {
	Name     string    `json:"name"`
	IsGroup  bool      `json:"groupChat"`
	Messages []Message `json:"messages"`
}

// ChatCollection maps chat display names to chats.
// Display names are not guaranteed unique: two chats sharing a name
// collapse into one entry, last write wins.
type ChatCollection map[string]Chat

// CanonicalIdentifier strips the protocol suffix from a sender JID and keeps
// only the digits of the identifier, e.g. "5491155550000@s.whatsapp.net"
// becomes "5491155550000".
func CanonicalIdentifier(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, jid)
}
