package mention

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/zjrosen/draftpad/internal/log"
)

// MeiliSearcher searches a Meilisearch index of member profiles. Documents
// are expected to carry name, address, chain, avatarUrl and lastActive
// (RFC 3339) fields, with chain filterable.
type MeiliSearcher struct {
	index meili.IndexManager
	uid   string
}

// NewMeiliSearcher connects to the index uid at url.
func NewMeiliSearcher(url, apiKey, uid string) *MeiliSearcher {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	return &MeiliSearcher{index: client.Index(uid), uid: uid}
}

func (m *MeiliSearcher) Search(ctx context.Context, query string, opts Options) ([]Candidate, error) {
	req := &meili.SearchRequest{Limit: int64(max(opts.ResultSize, 1))}
	if opts.Scope != "" {
		req.Filter = fmt.Sprintf("chain = %q", opts.Scope)
	}

	resp, err := m.index.SearchWithContext(ctx, query, req)
	if err != nil {
		return nil, fmt.Errorf("meilisearch %s: %w", m.uid, err)
	}

	out := make([]Candidate, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		c := Candidate{
			DisplayName: decodeString(hit, "name"),
			Address:     decodeString(hit, "address"),
			Chain:       decodeString(hit, "chain"),
			AvatarURL:   decodeString(hit, "avatarUrl"),
		}
		if raw := decodeString(hit, "lastActive"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				log.Warn(log.CatMention, "bad lastActive in search hit", "address", c.Address, "value", raw)
			} else {
				c.LastActiveAt = t
			}
		}
		if strings.TrimSpace(c.DisplayName) == "" {
			c.DisplayName = c.Address
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
