package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"smeaudit/internal/apiclient"
	"smeaudit/internal/chat"
)

var errExit = errors.New("exit")

// Session is one interactive chat against a running server.
type Session struct {
	API  *apiclient.Client
	Chat *chat.Client
	Out  io.Writer

	attachments []string
}

// NewSession wires a chat client to api's base URL and token. conversationID may be
// empty; the server then opens a new conversation on the first message.
func NewSession(api *apiclient.Client, conversationID string, out io.Writer) *Session {
	c := chat.NewClient(api.BaseURL, api.Token, chat.NewStore(conversationID))
	s := &Session{API: api, Chat: c, Out: out}
	c.OnEvent = s.printEvent
	return s
}

// Run starts the interactive loop.
// Slash commands are dispatched locally; anything else is sent to the assistant.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(s.Out, "SME Audit Assistant")
	if u, err := s.API.Me(ctx); err == nil {
		fmt.Fprintf(s.Out, "Signed in as %s (company %d)\n", u.Username, u.CompanyID)
	}
	fmt.Fprintln(s.Out, "Ask about vendors, reconciliations or GST, or use /help for commands.")
	fmt.Fprintln(s.Out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(s.Out, "\n> ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input != "" {
			var err error
			if strings.HasPrefix(input, "/") {
				err = s.dispatchSlash(ctx, input)
			} else {
				err = s.send(ctx, input)
			}
			if errors.Is(err, errExit) {
				fmt.Fprintln(s.Out, "Goodbye!")
				return nil
			}
			if err != nil {
				fmt.Fprintf(s.Out, "Error: %v\n", err)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				fmt.Fprintln(s.Out)
				return nil
			}
			return readErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Session) send(ctx context.Context, message string) error {
	ids := s.attachments
	s.attachments = nil
	err := s.Chat.Send(ctx, s.Chat.Store.ConversationID(), message, ids)
	fmt.Fprintln(s.Out)

	var streamErr *chat.StreamError
	if errors.As(err, &streamErr) {
		// Already printed from the error frame.
		return nil
	}
	return err
}

func (s *Session) dispatchSlash(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "vendors":
		vendors, err := s.API.ListVendors(ctx, strings.Join(args, " "), false)
		if err != nil {
			return err
		}
		PrintVendors(s.Out, vendors)

	case "stats":
		stats, err := s.API.DashboardStats(ctx)
		if err != nil {
			return err
		}
		PrintStats(s.Out, stats)

	case "attach":
		if len(args) == 0 {
			fmt.Fprintln(s.Out, "Usage: /attach <document-id> [document-id...]")
			return nil
		}
		s.attachments = append(s.attachments, args...)
		fmt.Fprintf(s.Out, "%d document(s) will be attached to the next message.\n", len(s.attachments))

	case "confirm", "yes", "y":
		return s.answer(ctx, true)

	case "cancel", "no", "n":
		return s.answer(ctx, false)

	case "new":
		s.Chat.Store = chat.NewStore("")
		s.attachments = nil
		fmt.Fprintln(s.Out, "Started a new conversation.")

	case "history":
		printHistory(s.Out, s.Chat.Store.Messages())

	case "help", "h":
		printHelp(s.Out)

	case "exit", "quit", "q":
		return errExit

	default:
		fmt.Fprintf(s.Out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

// answer resolves the confirmation request raised during the last stream.
func (s *Session) answer(ctx context.Context, confirm bool) error {
	pending := s.Chat.Store.Pending()
	if pending == nil {
		fmt.Fprintln(s.Out, "Nothing is waiting for confirmation.")
		return nil
	}
	result, err := s.API.ConfirmAction(ctx, pending.Token, confirm)
	s.Chat.Store.ClearPending()
	if err != nil {
		if apiclient.IsNotFound(err) {
			fmt.Fprintln(s.Out, "The request expired or was already answered.")
			return nil
		}
		return err
	}
	if !confirm {
		fmt.Fprintf(s.Out, "Cancelled %s.\n", pending.ToolName)
		return nil
	}
	fmt.Fprintf(s.Out, "Done: %s\n", pending.Summary)
	printJSON(s.Out, result)
	return nil
}
