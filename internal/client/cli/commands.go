package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/client/notify"
	"github.com/dmitrijs2005/matchdeck/internal/client/services"
	"github.com/dmitrijs2005/matchdeck/internal/client/unmatch"
	"github.com/dmitrijs2005/matchdeck/internal/common"
)

const historyLimit = 20

var errNoDirectory = errors.New("match listing is unavailable")

// parseFilter reads key=value arguments of the load command.
func parseFilter(args []string) (models.Filter, error) {
	var f models.Filter
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return f, fmt.Errorf("%w: expected key=value, got %q", common.ErrValidation, arg)
		}
		switch k {
		case "radius":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, fmt.Errorf("%w: radius must be a non-negative integer", common.ErrValidation)
			}
			f.RadiusKm = n
		case "city":
			f.CityID = v
		case "interests":
			for _, id := range strings.Split(v, ",") {
				if id = strings.TrimSpace(id); id != "" {
					f.InterestIDs = append(f.InterestIDs, id)
				}
			}
		default:
			return f, fmt.Errorf("%w: unknown filter %q", common.ErrValidation, k)
		}
	}
	return f, nil
}

func (a *App) Load(ctx context.Context, args []string) error {
	f, err := parseFilter(args)
	if err != nil {
		return err
	}
	n, err := a.swipe.Load(ctx, f)
	if err != nil {
		return explain("Loading profiles", err)
	}
	a.console.Printf("Loaded %d profiles.\n", n)
	if n > 0 {
		return a.Show(ctx)
	}
	return nil
}

func (a *App) Reload(ctx context.Context) error {
	n, err := a.swipe.Reload(ctx)
	if err != nil {
		return explain("Loading profiles", err)
	}
	a.console.Printf("Loaded %d profiles.\n", n)
	if n > 0 {
		return a.Show(ctx)
	}
	return nil
}

func (a *App) Show(context.Context) error {
	a.render()
	return nil
}

// render draws the visible window and remembers its active card.
func (a *App) render() {
	w := a.swipe.Window()
	a.shown = ""
	if len(w) > 0 {
		a.shown = w[0].ID
	}
	a.console.Println(renderWindow(w))
}

// stale tells the user their input missed and shows the current card.
func (a *App) stale(err error) error {
	if !errors.Is(err, services.ErrStaleCard) {
		return err
	}
	a.console.Println("The card you acted on is no longer active.")
	a.render()
	return nil
}

func (a *App) Like(ctx context.Context) error {
	return a.press(ctx, models.VerdictAccept)
}

func (a *App) Pass(ctx context.Context) error {
	return a.press(ctx, models.VerdictReject)
}

func (a *App) press(ctx context.Context, v models.Verdict) error {
	c, err := a.swipe.Press(ctx, a.shown, v)
	if err != nil {
		return a.stale(err)
	}
	a.committed(c)
	return nil
}

// Drag simulates a horizontal drag of dx units lasting ms milliseconds,
// with one intermediate sample at the halfway point.
func (a *App) Drag(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: drag <dx> <ms>", common.ErrValidation)
	}
	dx, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("%w: dx must be a number", common.ErrValidation)
	}
	ms, err := strconv.Atoi(args[1])
	if err != nil || ms <= 0 {
		return fmt.Errorf("%w: ms must be a positive integer", common.ErrValidation)
	}

	id := a.shown
	start := a.now()
	dur := time.Duration(ms) * time.Millisecond
	if err := a.swipe.DragStart(id, 0, start); err != nil {
		return a.stale(err)
	}
	t, err := a.swipe.DragMove(id, dx/2, start.Add(dur/2))
	if err != nil {
		return a.stale(err)
	}
	a.console.Println(renderTransform(t))

	c, err := a.swipe.DragEnd(ctx, id, dx, start.Add(dur))
	if err != nil {
		return a.stale(err)
	}
	if !c.Committed {
		a.console.Println("Card returned to rest.")
		return nil
	}
	a.committed(c)
	return nil
}

func (a *App) committed(c services.Commit) {
	verb := "Passed on"
	if c.Decision.Verdict == models.VerdictAccept {
		verb = "Liked"
	}
	a.console.Printf("%s %s.\n", verb, c.Decision.CandidateID)
	if _, ok := a.swipe.Active(); ok {
		a.render()
		return
	}
	a.shown = ""
}

func (a *App) Match(context.Context) error {
	m, ok := a.notifier.Current()
	if !ok {
		a.console.Println("No match to show.")
		return nil
	}
	a.console.Println(renderMatch(m))
	if q := a.notifier.Queued(); q > 0 {
		a.console.Printf("%d more waiting.\n", q)
	}
	return nil
}

func (a *App) Dismiss(context.Context) error {
	if !a.notifier.Dismiss() {
		a.console.Println("No match to dismiss.")
	}
	return nil
}

func (a *App) Open(ctx context.Context) error {
	id, err := a.notifier.Open(ctx)
	switch {
	case errors.Is(err, notify.ErrNothingShown):
		a.console.Println("No match to open.")
		return nil
	case err != nil:
		return explain("Opening chat", err)
	}
	a.console.Printf("Chatting in conversation %s.\n", id)
	return nil
}

func (a *App) Chat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: chat <conversation id>", common.ErrValidation)
	}
	if err := a.chats.OpenConversation(ctx, args[0]); err != nil {
		return explain("Opening chat", err)
	}
	for _, m := range a.chats.Current().Messages() {
		a.console.Println(renderMessage(m))
	}
	return nil
}

func (a *App) Send(_ context.Context, text string) error {
	m, err := a.chats.Send(text)
	if err != nil {
		return err
	}
	a.console.Println(renderMessage(m))
	return nil
}

func (a *App) Reconnect(ctx context.Context) error {
	if err := a.chats.Reconnect(ctx); err != nil {
		return explain("Reconnecting", err)
	}
	return nil
}

func (a *App) Leave(context.Context) error {
	if errors.Is(a.chats.Leave(), services.ErrNoConversation) {
		a.console.Println("No conversation open.")
	}
	return nil
}

func (a *App) Unmatch(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: unmatch <user id>", common.ErrValidation)
	}
	return a.unmatch.Request(args[0])
}

// Confirm sends the pending unmatch. A backend failure has already been
// reported as a notice. When the removed user was on screen the window is
// drawn again.
func (a *App) Confirm(ctx context.Context) error {
	_, err := a.unmatch.Confirm(ctx)
	if errors.Is(err, unmatch.ErrNothingPending) {
		a.console.Println("Nothing to confirm.")
		return nil
	}
	if err == nil && a.shown != "" {
		if c, ok := a.swipe.Active(); !ok || c.ID != a.shown {
			a.render()
		}
	}
	return nil
}

func (a *App) Cancel(context.Context) error {
	if !a.unmatch.Cancel() {
		a.console.Println("Nothing to cancel.")
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	entries, err := a.swipe.History(ctx, historyLimit)
	if err != nil {
		return err
	}
	a.console.Println(renderHistory(entries))
	return nil
}

// Reset asks for confirmation, then forgets the saved discovery filter.
func (a *App) Reset(ctx context.Context) error {
	answer, err := GetSimpleText(a.input(), "Forget the saved filter? Type 'yes' to confirm.", a.console)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		a.console.Println("Reset cancelled.")
		return nil
	}
	if err := a.swipe.ResetPreferences(ctx); err != nil {
		return err
	}
	a.console.Println("Saved filter cleared.")
	return nil
}

func (a *App) Matches(ctx context.Context) error {
	if a.dir == nil {
		return errNoDirectory
	}
	ms, err := a.dir.Matches(ctx)
	if err != nil {
		return explain("Loading matches", err)
	}
	a.console.Println(renderMatches(ms, a.userID))
	return nil
}

func (a *App) Conversations(ctx context.Context) error {
	if a.dir == nil {
		return errNoDirectory
	}
	cs, err := a.dir.Conversations(ctx)
	if err != nil {
		return explain("Loading conversations", err)
	}
	a.console.Println(renderConversations(cs, a.userID))
	return nil
}

func (a *App) Notices(context.Context) error {
	ns := a.notices.Drain()
	if len(ns) == 0 {
		a.console.Println("No notices.")
	}
	for _, n := range ns {
		a.console.Println(renderNotice(n))
	}
	return nil
}

// explain turns err into the user-facing notice text for action.
func explain(action string, err error) error {
	return errors.New(models.NoticeFor(action, err).Text)
}
