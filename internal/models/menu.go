package models

import (
	"fmt"
	"strings"
)

// Menu sources accepted by GET /api/menu and the reindex job.
const (
	MenuSourceLive   = "live"
	MenuSourceStatic = "static"
)

// MaxSpiceLevel is the top of the 0..3 spice scale.
const MaxSpiceLevel = 3

// MenuItem is a single dish. Items are immutable once a menu has been built.
type MenuItem struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Ingredients string   `json:"ingredients,omitempty"`
	Category    string   `json:"category,omitempty"`
	Dietary     []string `json:"dietary,omitempty"`
	SpiceLevel  *int     `json:"spiceLevel,omitempty"`
}

// EmbeddingText is the text sent to the embedding provider for this item.
// Changing it changes the content hash, which forces a re-embed.
func (m MenuItem) EmbeddingText() string {
	var b strings.Builder

	b.WriteString(m.Name)
	b.WriteString(". ")
	b.WriteString(m.Description)

	if m.Ingredients != "" {
		b.WriteString(" Ingredients: ")
		b.WriteString(m.Ingredients)
	}

	if m.Category != "" {
		b.WriteString(" Category: ")
		b.WriteString(m.Category)
	}

	if len(m.Dietary) > 0 {
		b.WriteString(" Dietary: ")
		b.WriteString(strings.Join(m.Dietary, ", "))
	}

	if m.SpiceLevel != nil {
		fmt.Fprintf(&b, " Spice level: %d/%d", *m.SpiceLevel, MaxSpiceLevel)
	}

	return b.String()
}

// MenuQuery is the query string accepted by GET /api/menu. Any type other than
// "static" means live.
type MenuQuery struct {
	Type string `form:"type" validate:"omitempty,max=32,no_null_bytes"`
}
