// Package mention resolves @-mentions: it finds the mention token under the
// caret, runs debounced member searches and inserts the chosen member into the
// document.
package mention

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// HintText is shown while the query is still empty.
const HintText = "Type to tag a member"

// Candidate is one member returned by a search.
type Candidate struct {
	DisplayName  string
	Address      string
	Chain        string
	LastActiveAt time.Time
	AvatarURL    string
}

// Options scopes a search.
type Options struct {
	ResultSize int
	Scope      string // community/chain id; empty searches everywhere
}

// Searcher finds mentionable members.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) ([]Candidate, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, opts Options) ([]Candidate, error)

func (f SearcherFunc) Search(ctx context.Context, query string, opts Options) ([]Candidate, error) {
	return f(ctx, query, opts)
}

// Item is a rendered row of the candidate list.
type Item struct {
	// Hint rows are informational and cannot be selected.
	Hint       bool
	Name       string
	Address    string
	LastActive string
	Avatar     string
	Color      string
	Link       string
	Candidate  Candidate
}

// HintItem is the single row shown for an empty query.
func HintItem() Item {
	return Item{Hint: true, Name: HintText, Link: "#"}
}

// NewItem renders c relative to now.
func NewItem(c Candidate, now time.Time) Item {
	it := Item{
		Name:      c.DisplayName,
		Address:   ShortAddress(c.Address, c.Chain),
		Avatar:    c.AvatarURL,
		Color:     avatarColor(c.Address),
		Link:      fmt.Sprintf("/%s/account/%s", c.Chain, c.Address),
		Candidate: c,
	}
	if it.Avatar == "" {
		it.Avatar = GeneratedAvatar(c.Address, 20)
	}
	if !c.LastActiveAt.IsZero() {
		it.LastActive = "Last active " + humanize.RelTime(c.LastActiveAt, now, "ago", "from now")
	}
	return it
}

// ShortAddress keeps near addresses whole and truncates everything else to
// six characters.
func ShortAddress(address, chain string) string {
	if chain == "near" {
		return address
	}
	r := []rune(address)
	if len(r) <= 6 {
		return address + "..."
	}
	return string(r[:6]) + "..."
}

// GeneratedAvatar returns a deterministic identicon for seed as an SVG data URI.
func GeneratedAvatar(seed string, size int) string {
	sum := sha256.Sum256([]byte(seed))
	cell := float64(size) / 5

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, size, size)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#f0f0f0"/>`, size, size)
	color := avatarColor(seed)
	for row := 0; row < 5; row++ {
		for col := 0; col < 3; col++ {
			if sum[row*3+col]%2 == 0 {
				continue
			}
			for _, c := range []int{col, 4 - col} {
				fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
					float64(c)*cell, float64(row)*cell, cell, cell, color)
				if c == 2 {
					break
				}
			}
		}
	}
	b.WriteString(`</svg>`)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(b.String()))
}

func avatarColor(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("#%02x%02x%02x", sum[29], sum[30], sum[31])
}
