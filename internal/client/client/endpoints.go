package client

import (
	"fmt"
	"net/url"
	"strings"
)

const idPlaceholder = "{id}"

// Endpoints are the REST paths below the base url. In a path template
// {id} is replaced with the escaped identifier.
type Endpoints struct {
	Discover      string
	Swipe         string
	Unmatch       string
	Matches       string
	Conversations string
	Messages      string
}

// DefaultEndpoints are the routes the backend serves. The matches app is
// mounted under /api/matches/, so its own api/ prefix repeats.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Discover:      "/api/v1/profiles/all/",
		Swipe:         "/api/actions/swipe/",
		Unmatch:       "/api/matches/api/actions/unmatch/{id}/",
		Matches:       "/api/matches/api/matches/",
		Conversations: "/api/matches/api/conversations/",
		Messages:      "/api/matches/api/conversations/{id}/messages/",
	}
}

// merge fills the empty fields of e from d.
func (e Endpoints) merge(d Endpoints) Endpoints {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Endpoints{
		Discover:      pick(e.Discover, d.Discover),
		Swipe:         pick(e.Swipe, d.Swipe),
		Unmatch:       pick(e.Unmatch, d.Unmatch),
		Matches:       pick(e.Matches, d.Matches),
		Conversations: pick(e.Conversations, d.Conversations),
		Messages:      pick(e.Messages, d.Messages),
	}
}

// Validate checks that the per-resource templates carry {id}.
func (e Endpoints) Validate() error {
	if !strings.Contains(e.Unmatch, idPlaceholder) {
		return fmt.Errorf("client: unmatch path %q must contain %s", e.Unmatch, idPlaceholder)
	}
	if !strings.Contains(e.Messages, idPlaceholder) {
		return fmt.Errorf("client: messages path %q must contain %s", e.Messages, idPlaceholder)
	}
	return nil
}

func expand(tmpl, id string) string {
	return strings.ReplaceAll(tmpl, idPlaceholder, url.PathEscape(id))
}
