package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isVoter() bool
	isAdmin() bool

	VoterLogin(ctx context.Context) error
	SubmitOTP(ctx context.Context, code string) error
	ResendOTP(ctx context.Context) error
	Polls(ctx context.Context) error
	SelectPoll(ctx context.Context, id string) error
	SelectParty(ctx context.Context, id string) error
	Vote(ctx context.Context) error
	Retry(ctx context.Context) error
	Status(ctx context.Context) error
	VoterLogout(ctx context.Context) error

	AdminLogin(ctx context.Context) error
	Dashboard(ctx context.Context) error
	Conduct(ctx context.Context) error
	AddVoter(ctx context.Context) error
	CreateParty(ctx context.Context) error
	States(ctx context.Context) error
	Parties(ctx context.Context, stateID string) error
	ResetPolls(ctx context.Context) error
	AdminLogout(ctx context.Context) error
}

const (
	voterHelp = "Voter commands: login, otp <code>, resend, polls, poll <id>, select <party id>, vote, retry, status, logout"
	adminHelp = "Admin commands: admin-login, dashboard, conduct, add-voter, create-party, states, parties [state id], reset-polls, admin-logout"
)

// errUsage marks a command typed without its argument.
var errUsage = errors.New("usage")

// runREPL starts a simple read–eval–print loop for the ballot CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that take an argument get the second
// token. The loop exits on EOF or when the user types "exit" or "quit".
//
// The prompt shows the current status (from statusFn). Errors returned by
// command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ballot> %s > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn("Error:", err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, arg := parts[0], ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "help":
			switch {
			case a.isAdmin():
				printlnFn(adminHelp)
				printlnFn(voterHelp)
			case a.isVoter():
				printlnFn(voterHelp)
			default:
				printlnFn("Available commands: login, admin-login, help, exit")
			}

		case "login":
			err = a.VoterLogin(ctx)
		case "otp":
			err = withArg(arg, "otp <code>", func() error { return a.SubmitOTP(ctx, arg) })
		case "resend":
			err = a.ResendOTP(ctx)
		case "polls":
			err = a.Polls(ctx)
		case "poll":
			err = withArg(arg, "poll <id>", func() error { return a.SelectPoll(ctx, arg) })
		case "select":
			err = withArg(arg, "select <party id>", func() error { return a.SelectParty(ctx, arg) })
		case "vote":
			err = a.Vote(ctx)
		case "retry":
			err = a.Retry(ctx)
		case "status":
			err = a.Status(ctx)
		case "logout":
			err = a.VoterLogout(ctx)

		case "admin-login":
			err = a.AdminLogin(ctx)
		case "dashboard":
			err = a.Dashboard(ctx)
		case "conduct":
			err = a.Conduct(ctx)
		case "add-voter":
			err = a.AddVoter(ctx)
		case "create-party":
			err = a.CreateParty(ctx)
		case "states":
			err = a.States(ctx)
		case "parties":
			err = a.Parties(ctx, arg)
		case "reset-polls":
			err = a.ResetPolls(ctx)
		case "admin-logout":
			err = a.AdminLogout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			if errors.Is(err, errUsage) {
				printlnFn(err.Error())
			} else {
				printlnFn("Error:", describeError(err))
			}
		}
	}
}

func withArg(arg, usage string, fn func() error) error {
	if arg == "" {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	return fn()
}
