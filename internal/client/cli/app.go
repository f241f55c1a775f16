package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/auth"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/client/notify"
	"github.com/dmitrijs2005/matchdeck/internal/client/services"
	"github.com/dmitrijs2005/matchdeck/internal/client/unmatch"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

// Directory lists what the user already has: matches and conversations.
type Directory interface {
	Matches(ctx context.Context) ([]models.Match, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)
}

// Deps are the engine components the CLI drives. Directory, Creds, Console
// and Logger are optional.
type Deps struct {
	Swipe     services.SwipeService
	Chats     services.ChatService
	Notifier  *notify.Notifier
	Unmatch   *unmatch.Coordinator
	Notices   *services.NoticeBoard
	Directory Directory
	UserID    string
	Creds     *auth.StaticCredentials
	Console   *Console
	Logger    logging.Logger
}

type App struct {
	swipe    services.SwipeService
	chats    services.ChatService
	notifier *notify.Notifier
	unmatch  *unmatch.Coordinator
	notices  *services.NoticeBoard
	dir      Directory
	userID   string
	creds    *auth.StaticCredentials
	console  *Console
	logger   logging.Logger

	// shown is the active card of the last rendered window; gestures are
	// aimed at it.
	shown string

	in     io.Reader
	reader *bufio.Reader
	now    func() time.Time
}

func NewApp(d Deps) (*App, error) {
	if d.Swipe == nil || d.Chats == nil || d.Notifier == nil || d.Unmatch == nil {
		return nil, errors.New("cli: swipe, chat, notifier and unmatch components are required")
	}
	if d.Console == nil {
		d.Console = NewConsole(os.Stdout)
	}
	if d.Notices == nil {
		d.Notices = services.NewNoticeBoard(nil)
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	return &App{
		swipe:    d.Swipe,
		chats:    d.Chats,
		notifier: d.Notifier,
		unmatch:  d.Unmatch,
		notices:  d.Notices,
		dir:      d.Directory,
		userID:   d.UserID,
		creds:    d.Creds,
		console:  d.Console,
		logger:   d.Logger,
		in:       os.Stdin,
		now:      time.Now,
	}, nil
}

// Run asks for an access token when none is configured, then serves the
// REPL until the user exits or ctx is done. The open conversation is closed
// on return.
func (a *App) Run(ctx context.Context) {
	a.console.Println("Welcome to matchdeck (type 'help' for commands)")

	if a.creds != nil {
		if tok, err := a.creds.BearerToken(); err == nil && tok == "" {
			secret, err := GetSecret(a.console, "Access token (empty to browse anonymously)")
			if err != nil {
				a.logger.Warn(ctx, "reading access token failed", "error", err)
			} else {
				a.creds.SetBearer(secret)
			}
		}
	}

	defer func() {
		if a.chats.Current() != nil {
			_ = a.chats.Leave()
		}
	}()

	runREPL(ctx, a, a.status, a.input())
}

// input is shared by the REPL and the prompts of individual commands.
func (a *App) input() *bufio.Reader {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	return a.reader
}

func (a *App) status() string {
	s := "(empty deck)"
	if c, ok := a.swipe.Active(); ok {
		s = fmt.Sprintf("(%s, %d left)", c.DisplayName, a.swipe.Remaining())
	}
	if cur := a.chats.Current(); cur != nil {
		st := cur.State().String()
		if err := cur.LastError(); err != nil && cur.State() == models.Disconnected {
			st += ", last error: " + truncate(err.Error(), 60)
		}
		s += fmt.Sprintf(" [chat %s %s]", cur.ConversationID(), st)
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
