package service

import "strings"

// emoticons maps classic ASCII emoticons to their emoji form. Longer
// sequences are substituted first so "</3" is not half-eaten by "<3".
var emoticons = []struct{ from, to string }{
	{":thumbsup:", "\U0001F44D"},
	{":thumbsdown:", "\U0001F44E"},
	{"</3", "\U0001F494"},
	{":)", "\U0001F642"},
	{":(", "\U0001F641"},
	{":D", "\U0001F604"},
	{":P", "\U0001F61B"},
	{":o", "\U0001F62E"},
	{":/", "\U0001FAE4"},
	{":|", "\U0001F610"},
	{";)", "\U0001F609"},
	{"<3", "❤️"},
}

// convertEmoticons substitutes emoticons in message content.
func convertEmoticons(s string) string {
	for _, e := range emoticons {
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	return s
}

// isEmojiOnly reports whether the content (post-conversion) consists solely
// of emoji-range runes and whitespace, which renders enlarged in clients.
func isEmojiOnly(s string) bool {
	seen := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n':
		case r >= 0x1F300 && r <= 0x1FAFF, r >= 0x2600 && r <= 0x27BF,
			r == 0x2764, r == 0xFE0F:
			seen = true
		default:
			return false
		}
	}
	return seen
}
