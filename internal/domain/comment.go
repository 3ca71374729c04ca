package domain

import "strings"

// Comment is a text reply on a post. Post and Author are fixed at creation.
type Comment struct {
	Record
	Post   string `json:"post" validate:"required"`
	Author string `json:"author" validate:"required"`
	Text   string `json:"text" validate:"notblank,max=2000"`
}

// SetText stores text with surrounding whitespace removed.
func (c *Comment) SetText(text string) {
	c.Text = strings.TrimSpace(text)
}
