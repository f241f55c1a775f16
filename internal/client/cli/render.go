package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/gesture"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/client/repositories/decisions"
)

// Console serializes output from the REPL and from engine callbacks, which
// arrive on background goroutines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, a...)
}

func (c *Console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, a...)
}

// Write lets prompts share the console lock.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// The On* methods match the engine callback signatures.

func (c *Console) OnMatch(m models.MatchInfo) {
	c.Println(renderMatch(m))
}

func (c *Console) OnNotice(n models.Notice) {
	c.Println(renderNotice(n))
}

func (c *Console) OnMessage(m models.Message) {
	if m.Optimistic {
		return
	}
	c.Println(renderMessage(m))
}

func (c *Console) OnConnectionState(s models.ConnectionState) {
	c.Println("[chat " + s.String() + "]")
}

func (c *Console) OnDeckEmpty() {
	c.Println("No more profiles to show. Try 'load' with other filters.")
}

func (c *Console) OnUnmatchPrompt(r models.UnmatchRequest) {
	c.Printf("Unmatch %s? Type 'confirm' or 'cancel'.\n", r.TargetID)
}

func (c *Console) OnUnmatched(targetID string) {
	c.Printf("Unmatched %s.\n", targetID)
}

func renderCard(c models.Candidate) string {
	var b strings.Builder
	b.WriteString(c.DisplayName)
	if c.Age > 0 {
		fmt.Fprintf(&b, ", %d", c.Age)
	}
	if c.DistanceKm != nil {
		fmt.Fprintf(&b, " | %.1f km", *c.DistanceKm)
	}
	if c.City != "" {
		b.WriteString(" | " + c.City)
	}
	if c.Bio != "" {
		b.WriteString("\n  " + c.Bio)
	}
	if c.PhotoURL != "" {
		b.WriteString("\n  photo: " + c.PhotoURL)
	}
	return b.String()
}

// renderWindow draws the visible window, the active card first.
func renderWindow(cs []models.Candidate) string {
	if len(cs) == 0 {
		return "No profiles."
	}
	var b strings.Builder
	for i, c := range cs {
		if i == 0 {
			b.WriteString("> " + renderCard(c))
			continue
		}
		fmt.Fprintf(&b, "\n  (next) %s", c.DisplayName)
	}
	return b.String()
}

func renderTransform(t gesture.Transform) string {
	hint := ""
	switch {
	case t.AcceptOpacity > 0:
		hint = fmt.Sprintf(" LIKE %.0f%%", t.AcceptOpacity*100)
	case t.RejectOpacity > 0:
		hint = fmt.Sprintf(" NOPE %.0f%%", t.RejectOpacity*100)
	}
	return fmt.Sprintf("dx=%.0f rot=%.1f°%s", t.DX, t.RotationDeg, hint)
}

func renderMatch(m models.MatchInfo) string {
	s := fmt.Sprintf("It's a match! You and %s liked each other.", m.CounterpartName)
	if m.ConversationID == "" {
		return s + " (chat unavailable)"
	}
	return s + " Type 'open' to start chatting."
}

func renderNotice(n models.Notice) string {
	return "! " + n.Text
}

func renderMessage(m models.Message) string {
	who := m.SenderName
	if m.Outgoing {
		who = "you"
	} else if who == "" {
		who = m.SenderID
	}
	s := fmt.Sprintf("[%s] %s: %s", m.SentAt.Format("15:04"), who, m.Content)
	if m.Optimistic {
		s += " (sending)"
	}
	return s
}

func renderHistory(entries []decisions.Entry) string {
	if len(entries) == 0 {
		return "No decisions yet."
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %-4s %-10s %s", e.Decision.IssuedAt.Format(time.DateTime),
			e.Decision.Verdict, e.Status, e.Decision.CandidateID)
		if e.Error != "" {
			b.WriteString("  (" + e.Error + ")")
		}
	}
	return b.String()
}

func renderMatches(ms []models.Match, selfID string) string {
	if len(ms) == 0 {
		return "No matches yet."
	}
	var b strings.Builder
	for i, m := range ms {
		if i > 0 {
			b.WriteByte('\n')
		}
		who := "someone"
		if p, ok := models.Counterpart(m.Participants, selfID); ok {
			who = p.Name
		}
		b.WriteString(who)
		if m.ConversationID != "" {
			fmt.Fprintf(&b, "  (chat %s)", m.ConversationID)
		} else {
			b.WriteString("  (no chat)")
		}
	}
	return b.String()
}

func renderConversations(cs []models.Conversation, selfID string) string {
	if len(cs) == 0 {
		return "No conversations yet."
	}
	var b strings.Builder
	for i, c := range cs {
		if i > 0 {
			b.WriteByte('\n')
		}
		who := "someone"
		if p, ok := models.Counterpart(c.Participants, selfID); ok {
			who = p.Name
		}
		fmt.Fprintf(&b, "%s  %s", c.ID, who)
		if c.LastMessage == nil {
			b.WriteString("  (no messages)")
			continue
		}
		m := *c.LastMessage
		m.Outgoing = selfID != "" && m.SenderID == selfID
		b.WriteString("  " + renderMessage(m))
	}
	return b.String()
}
