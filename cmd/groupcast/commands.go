package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/danhigham/groupcast/internal/dispatch"
	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/ui"
)

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{"login", "sessions", "logout", "groups", "join", "send"}

var commands = map[string]command{
	"login": {
		usage:   "login <phone>",
		summary: "sign in and save the session",
		run:     runLogin,
	},
	"sessions": {
		usage:   "sessions",
		summary: "list saved sessions",
		run:     runSessions,
	},
	"logout": {
		usage:   "logout <phone>",
		summary: "sign out and delete the saved session",
		run:     runLogout,
	},
	"groups": {
		usage:   "groups <phone>",
		summary: "list the groups you can send to",
		run:     runGroups,
	},
	"join": {
		usage:   "join <phone> <@name | t.me link | invite link>",
		summary: "join a group",
		run:     runJoin,
	},
	"send": {
		usage:   "send <phone> --message TEXT [flags]",
		summary: "send a message to many groups",
		run:     runSend,
	},
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func positional(args []string, names ...string) ([]string, error) {
	if len(args) != len(names) {
		return nil, usageError{fmt.Sprintf("expected %d argument(s), got %d", len(names), len(args))}
	}
	return args, nil
}

func noFlags(name string, args []string) ([]string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return nil, usageError{err.Error()}
	}
	return fs.Args(), nil
}

// resume reconnects the saved session of phone and makes it active.
func (a *app) resume(ctx context.Context, phone string) (string, error) {
	msg, err := a.sessions.Resume(ctx, phone)
	display := "+" + domain.NormalizePhone(phone)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "", fmt.Errorf("no saved session for %s, run `groupcast login %s` first", display, display)
	case errors.Is(err, domain.ErrSessionInvalid):
		return "", fmt.Errorf("the saved session for %s is no longer valid, run `groupcast login %s` again", display, display)
	}
	return msg, err
}

func runLogin(ctx context.Context, a *app, args []string) error {
	args, err := noFlags("login", args)
	if err != nil {
		return err
	}
	args, err = positional(args, "phone")
	if err != nil {
		return err
	}

	prompter := newConsolePrompter(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
	msg, err := a.sessions.Authenticate(ctx, args[0], prompter)
	if err != nil {
		// The state tells whether the code or the password step failed.
		a.logger.Warn("login failed",
			zap.String("phone", domain.MaskPhone(domain.NormalizePhone(args[0]))),
			zap.Stringer("state", a.sessions.State(args[0])))
		return err
	}
	fmt.Println(msg)
	return nil
}

func runSessions(ctx context.Context, a *app, args []string) error {
	args, err := noFlags("sessions", args)
	if err != nil {
		return err
	}
	if _, err := positional(args); err != nil {
		return err
	}

	phones, err := a.sessions.ListPersisted()
	if err != nil {
		return err
	}
	if len(phones) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}
	for i, p := range phones {
		fmt.Printf("%d. +%s\n", i+1, p)
	}
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	args, err := noFlags("logout", args)
	if err != nil {
		return err
	}
	args, err = positional(args, "phone")
	if err != nil {
		return err
	}
	phone := args[0]

	// Connect first so the server side of the session is terminated too.
	if _, err := a.sessions.Resume(ctx, phone); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			fmt.Printf("No saved session for +%s.\n", domain.NormalizePhone(phone))
			return nil
		}
		a.logger.Debug("logout without a live connection", zap.Error(err))
	}

	msg, err := a.sessions.Revoke(ctx, phone)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runGroups(ctx context.Context, a *app, args []string) error {
	args, err := noFlags("groups", args)
	if err != nil {
		return err
	}
	args, err = positional(args, "phone")
	if err != nil {
		return err
	}

	greeting, err := a.resume(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(greeting)

	groups, err := a.directory.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups found.")
		return nil
	}
	fmt.Println(groupTable(groups))
	return nil
}

func groupTable(groups []domain.Group) string {
	rows := make([][]string, len(groups))
	for i, g := range groups {
		members := "-"
		if g.Members != nil {
			members = strconv.Itoa(*g.Members)
		}
		rows[i] = []string{strconv.Itoa(i + 1), strconv.FormatInt(g.ID, 10), g.Kind.String(), members, g.Title}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "ID", "Type", "Members", "Title").
		Rows(rows...).
		String()
}

func runJoin(ctx context.Context, a *app, args []string) error {
	args, err := noFlags("join", args)
	if err != nil {
		return err
	}
	args, err = positional(args, "phone", "reference")
	if err != nil {
		return err
	}

	if _, err := a.resume(ctx, args[0]); err != nil {
		return err
	}
	msg, err := a.directory.Join(ctx, args[1])
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runSend(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	groupsFlag := fs.String("groups", "", "group numbers as listed by `groups`, e.g. 1,3,5-7")
	idsFlag := fs.Int64Slice("ids", nil, "group ids as listed by `groups`")
	all := fs.Bool("all", false, "send to every group")
	message := fs.StringP("message", "m", "", "message text; **bold**, __italic__, `code` and [links](url) are formatted")
	image := fs.String("image", "", "file to attach; the message becomes its caption")
	loop := fs.Bool("loop", false, "repeat until stopped")
	groupDelay := fs.Int("group-delay", -1, "seconds between groups (default from config)")
	loopDelay := fs.Int("loop-delay", -1, "seconds between loops (default from config)")
	plain := fs.Bool("plain", false, "print progress lines instead of the interactive view")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	rest, err := positional(fs.Args(), "phone")
	if err != nil {
		return err
	}

	chosen := 0
	for _, set := range []bool{*groupsFlag != "", len(*idsFlag) > 0, *all} {
		if set {
			chosen++
		}
	}
	switch {
	case *message == "" && *image == "":
		return usageError{"--message or --image is required"}
	case chosen > 1:
		return usageError{"--groups, --ids and --all are mutually exclusive"}
	case *plain && chosen == 0:
		return usageError{"--plain needs --groups, --ids or --all"}
	}

	greeting, err := a.resume(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Println(greeting)

	groups, err := a.directory.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return errors.New("no groups found for this account")
	}

	var ids []int64
	switch {
	case *all:
		for _, g := range groups {
			ids = append(ids, g.ID)
		}
	case *groupsFlag != "":
		idx, err := parseIndexes(*groupsFlag, len(groups))
		if err != nil {
			return usageError{err.Error()}
		}
		for _, n := range idx {
			g, ok := a.directory.ByIndex(n)
			if !ok {
				return usageError{fmt.Sprintf("group number %d not found", n+1)}
			}
			ids = append(ids, g.ID)
		}
	case len(*idsFlag) > 0:
		for _, id := range *idsFlag {
			g, ok := a.directory.ByID(id)
			if !ok {
				return usageError{fmt.Sprintf("no group with id %d", id)}
			}
			ids = append(ids, g.ID)
		}
	}
	if ids == nil {
		// The picker starts empty.
		a.store.ClearSelection()
	} else {
		a.store.Select(ids)
	}

	d := a.engine.Delays()
	if *groupDelay >= 0 {
		d.Group = time.Duration(*groupDelay) * time.Second
	}
	if *loopDelay >= 0 {
		d.Loop = time.Duration(*loopDelay) * time.Second
	}
	a.engine.SetDelays(d)

	req := dispatch.Request{
		Targets:    a.store.Selected(),
		Message:    *message,
		Attachment: *image,
		Loop:       *loop,
	}

	var counters dispatch.Counters
	switch {
	case *plain && len(req.Targets) == 1 && !req.Loop:
		counters, err = sendSingle(ctx, a, req)
	case *plain:
		counters, err = a.engine.Run(ctx, req, printEvent)
	default:
		user := "+" + domain.MaskPhone(a.store.Account())
		counters, err = ui.NewApp(ctx, a.store, a.engine, req, user).Run()
		if errors.Is(err, ui.ErrAborted) {
			fmt.Println("Nothing sent.")
			return nil
		}
	}
	if err != nil {
		return err
	}

	if a.engine.State() == dispatch.StateStopped {
		fmt.Println("Stopped.")
	}
	fmt.Printf("Sent: %d  Failed: %d  Total: %d  Loops: %d\n",
		counters.Success, counters.Failed, counters.Total, counters.Loops)
	return nil
}

// sendSingle delivers to one group without starting the send loop.
func sendSingle(ctx context.Context, a *app, req dispatch.Request) (dispatch.Counters, error) {
	g := req.Targets[0]
	c := dispatch.Counters{Total: 1, Loops: 1}
	msg, err := a.engine.SendOne(ctx, g, req.Message, req.Attachment)

	var sendErr *dispatch.SendError
	switch {
	case err == nil:
		c.Success++
		printEvent(dispatch.Event{Kind: dispatch.EventSent, GroupID: g.ID, Target: g.Title, Message: g.Title + ": " + msg})
	case errors.As(err, &sendErr):
		c.Failed++
		printEvent(dispatch.Event{Kind: dispatch.EventFailed, GroupID: g.ID, Target: g.Title,
			Failure: sendErr.Failure.Kind, Message: g.Title + ": " + sendErr.Failure.Message})
	default:
		return dispatch.Counters{}, err
	}
	return c, nil
}

func printEvent(ev dispatch.Event) {
	if ev.Kind == dispatch.EventSending {
		return
	}
	ts := time.Now().Format("15:04:05")
	success, ok := ev.Succeeded()
	switch {
	case !ok:
		fmt.Printf("%s %s\n", ts, ev.Message)
	case success:
		fmt.Printf("%s ✓ %s\n", ts, ev.Message)
	default:
		fmt.Printf("%s ✗ %s\n", ts, ev.Message)
	}
}
