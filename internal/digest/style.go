package digest

import (
	"fmt"
	"html"
)

// Style renders the few markup pieces a digest needs in a platform's dialect.
type Style interface {
	Mention(chatUserID string) string
	Bold(text string) string
	// Text escapes plain text for the platform.
	Text(text string) string
}

// DiscordStyle uses Discord markdown and <@id> mentions.
type DiscordStyle struct{}

func (DiscordStyle) Mention(id string) string { return "<@" + id + ">" }
func (DiscordStyle) Bold(text string) string  { return "**" + text + "**" }
func (DiscordStyle) Text(text string) string  { return text }

// HTMLStyle uses Telegram's HTML parse mode.
type HTMLStyle struct{}

func (HTMLStyle) Mention(id string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%s">%s</a>`, html.EscapeString(id), html.EscapeString(id))
}
func (HTMLStyle) Bold(text string) string { return "<b>" + html.EscapeString(text) + "</b>" }
func (HTMLStyle) Text(text string) string { return html.EscapeString(text) }
