package portalcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jrsteele09/go-contest-portal/app"
	"github.com/jrsteele09/go-contest-portal/notify"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/jrsteele09/go-contest-portal/timeoutwarning"
)

const help = `commands:
  enter <contest-code> <participant-code>   start a participant session
  status                                    show session, page and profile
  extend                                    stay signed in when warned
  logout                                    end the participant session
  select <category>                         remember the category you are entering
  signin <email> <password>                 sign in as staff
  signout                                   sign out
  get <resource> [key=value ...]            read a resource
  post <resource> [key=value ...]           write to a resource
  focus                                     refetch stale data
  notices                                   list notices
  dismiss [id]                              dismiss one or all notices
  back                                      go back a page
  help                                      show this help
  quit                                      leave`

// Shell runs portal commands read one line at a time.
type Shell struct {
	app   *app.App
	out   io.Writer
	shown map[string]bool // error notices already printed
}

func NewShell(a *app.App, out io.Writer) *Shell {
	return &Shell{app: a, out: out, shown: make(map[string]bool)}
}

func (s *Shell) Banner() {
	fmt.Fprintln(s.out, "Contest portal. Type 'help' for commands.")
}

func (s *Shell) Prompt() {
	prefix := ""
	if s.app.Warning().State() == timeoutwarning.StateShown {
		prefix = fmt.Sprintf("[session expires in %s, 'extend' or 'logout'] ", s.app.Warning().Remaining().Round(time.Second))
	}
	fmt.Fprintf(s.out, "%s%s> ", prefix, s.app.History().Current())
}

// Exec runs one command line. It reports true when the user asked to quit.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	s.app.Recover(func() {
		quit = s.dispatch(ctx, fields[0], fields[1:])
	})
	s.printNotices()
	return quit
}

func (s *Shell) dispatch(ctx context.Context, cmd string, args []string) bool {
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(s.out, help)
	case "enter":
		if len(args) != 2 {
			// Missing codes are still submitted so the user sees the same message as the form.
			args = append(args, "", "")[:2]
		}
		s.enter(ctx, args[0], args[1])
	case "status":
		s.status(ctx)
	case "extend":
		if !s.app.ExtendSession(ctx) {
			fmt.Fprintln(s.out, "no active participant session")
		}
	case "logout":
		s.app.EndParticipantSession(ctx)
	case "select":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: select <category>")
			return false
		}
		if err := s.app.SelectCategory(ctx, args[0]); err == nil {
			fmt.Fprintf(s.out, "category %s selected\n", args[0])
		}
	case "signin":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: signin <email> <password>")
			return false
		}
		_, _ = s.app.SignIn(ctx, args[0], args[1])
	case "signout":
		s.app.SignOut(ctx)
	case "get":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "usage: get <resource> [key=value ...]")
			return false
		}
		if raw, err := s.app.Query(ctx, args[0], keyValues(args[1:])); err == nil {
			s.printJSON(raw)
		}
	case "post":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "usage: post <resource> [key=value ...]")
			return false
		}
		if raw, err := s.app.Mutate(ctx, args[0], keyValues(args[1:])); err == nil {
			s.printJSON(raw)
		}
	case "focus":
		fmt.Fprintf(s.out, "refetched %d queries\n", s.app.WindowFocused(ctx))
	case "notices":
		for _, n := range s.app.Notices().Active() {
			fmt.Fprintf(s.out, "%s  %-7s %s\n", n.ID, n.Kind, n.Message)
		}
	case "dismiss":
		if len(args) == 0 {
			s.app.Notices().DismissAll()
		} else {
			s.app.Notices().Dismiss(args[0])
		}
	case "back":
		s.app.History().Back()
	default:
		fmt.Fprintf(s.out, "unknown command %q, type 'help'\n", cmd)
	}
	return false
}

func (s *Shell) enter(ctx context.Context, contestCode, participantCode string) bool {
	res := s.app.SubmitCodes(ctx, contestCode, participantCode)
	if res.OK {
		fmt.Fprintf(s.out, "participant %s in %s, session expires %s\n",
			res.Session.ParticipantName, res.Session.ContestName, res.Session.ExpiresAt.Format(time.Kitchen))
	}
	s.printNotices()
	return res.OK
}

func (s *Shell) status(ctx context.Context) {
	m := s.app.Participants()
	fmt.Fprintf(s.out, "page:        %s\n", s.app.History().Current())
	fmt.Fprintf(s.out, "participant: %s", m.State())
	if sess, ok := m.Session(); ok {
		fmt.Fprintf(s.out, " (%s, %s left)", sess.ContestName, m.Remaining().Round(time.Second))
	}
	fmt.Fprintln(s.out)
	if m.State() == participant.StateActive {
		if sel, err := m.Selection(ctx); err == nil && sel != "" {
			fmt.Fprintf(s.out, "category:    %s\n", sel)
		}
	}
	if user, err := s.app.Profile(ctx); err == nil {
		fmt.Fprintf(s.out, "signed in:   %s (%s)\n", user.Email, user.Role)
	} else {
		fmt.Fprintln(s.out, "signed in:   no")
	}
	fmt.Fprintf(s.out, "cached:      %d queries\n", s.app.Cache().Len())
}

// printNotices prints new notices. Success notices are dismissed once
// printed; errors stay listed under 'notices' until dismissed.
func (s *Shell) printNotices() {
	for _, n := range s.app.Notices().Active() {
		if n.Kind == notify.KindSuccess {
			fmt.Fprintf(s.out, "✔ %s\n", n.Message)
			s.app.Notices().Dismiss(n.ID)
			continue
		}
		if s.shown[n.ID] {
			continue
		}
		s.shown[n.ID] = true
		fmt.Fprintf(s.out, "✘ %s\n", n.Message)
	}
}

func (s *Shell) printJSON(raw json.RawMessage) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Fprintln(s.out, string(raw))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(s.out, string(pretty))
}

func keyValues(args []string) map[string]string {
	out := make(map[string]string, len(args))
	for _, a := range args {
		if k, v, ok := strings.Cut(a, "="); ok {
			out[k] = v
		}
	}
	return out
}
