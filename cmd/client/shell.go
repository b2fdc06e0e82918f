package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/docchat/internal/client/chats"
	"github.com/atinyakov/docchat/internal/client/session"
	"github.com/atinyakov/docchat/internal/models"
)

const timeLayout = "2006-01-02 15:04"

const helpText = `Available commands:
  login <email> <password>             sign in
  register <email> <password> <name>   create an account
  logout                               sign out and clear local data
  whoami                               show the signed-in user
  list                                 list chats
  trash                                list deleted chats
  new <file>                           start a chat about a document
  open <id>                            open a chat
  send <text>                          add a message to the open chat
  delete <id>                          move a chat to the trash
  restore <id>                         restore a chat from the trash
  purge <id>                           delete a chat from the trash forever
  export <id> <json|yaml|md> [file]    export a chat transcript
  exit                                 quit`

// shell is the interactive front-end over the session store and the chat
// repository.
type shell struct {
	in    io.Reader
	out   io.Writer
	store *session.Store
	repo  *chats.Repository
}

// run reads commands until EOF, "exit" or ctx cancellation.
func (s *shell) run(ctx context.Context) {
	s.greet()
	done := make(chan struct{})
	defer close(done)
	lines := s.readLines(done)

	for {
		fmt.Fprint(s.out, promptStyle.Render("docchat>")+" ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(s.out)
			return
		}
		args := strings.Fields(strings.TrimSpace(line))
		if len(args) == 0 {
			continue
		}
		if !s.exec(ctx, args) {
			return
		}
	}
}

// readLines scans s.in in the background. The channel is closed at EOF; the
// scanner stops once done is closed and the pending read returns.
func (s *shell) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

func (s *shell) greet() {
	if sess := s.store.Session(); sess.Authenticated {
		fmt.Fprintf(s.out, "Welcome back, %s\n", titleStyle.Render(sess.User.Name))
		return
	}
	fmt.Fprintln(s.out, "Not signed in. Use 'login' or 'register', or 'help' for all commands.")
}

// exec runs one command and reports whether the loop should continue.
func (s *shell) exec(ctx context.Context, args []string) bool {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, helpText)
		return true
	case "exit", "quit":
		fmt.Fprintln(s.out, "Bye")
		return false
	case "login":
		s.login(ctx, rest)
		return true
	case "register":
		s.register(ctx, rest)
		return true
	}

	if !s.store.Session().Authenticated {
		if isChatCommand(cmd) || cmd == "logout" || cmd == "whoami" {
			s.dialog("Please sign in first.")
		} else {
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		}
		return true
	}

	switch cmd {
	case "logout":
		s.store.Logout(ctx)
		s.repo.Reset(chats.SeedChats())
		fmt.Fprintln(s.out, "Signed out")
	case "whoami":
		u := s.store.Session().User
		fmt.Fprintf(s.out, "%s <%s> %s\n", titleStyle.Render(u.Name), u.Email, idStyle.Render(u.ID))
	case "list":
		s.list()
	case "trash":
		s.trash()
	case "new":
		s.newChat(rest)
	case "open":
		s.open(rest)
	case "send":
		s.send(rest)
	case "delete":
		s.withID(rest, "delete", s.repo.DeleteChat, "Chat moved to trash")
	case "restore":
		s.withID(rest, "restore", s.repo.RestoreChat, "Chat restored")
	case "purge":
		s.withID(rest, "purge", s.repo.DeletePermanently, "Chat deleted permanently")
	case "export":
		s.export(rest)
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return true
}

func isChatCommand(cmd string) bool {
	switch cmd {
	case "list", "trash", "new", "open", "send", "delete", "restore", "purge", "export":
		return true
	}
	return false
}

func (s *shell) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: login <email> <password>")
		return
	}
	fmt.Fprintln(s.out, "Signing in...")
	if err := s.store.Login(ctx, args[0], args[1]); err != nil {
		s.authFailed(err, "Login failed")
		return
	}
	fmt.Fprintf(s.out, "Signed in as %s\n", titleStyle.Render(s.store.Session().User.Name))
}

func (s *shell) register(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(s.out, "Usage: register <email> <password> <name>")
		return
	}
	fmt.Fprintln(s.out, "Creating account...")
	if err := s.store.Register(ctx, args[0], args[1], strings.Join(args[2:], " ")); err != nil {
		s.authFailed(err, "Registration failed")
		return
	}
	fmt.Fprintf(s.out, "Welcome, %s\n", titleStyle.Render(s.store.Session().User.Name))
}

func (s *shell) authFailed(err error, fallback string) {
	msg := fallback
	var authErr *session.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		msg = authErr.Message
	}
	s.dialog(msg + "\nPlease try again.")
}

func (s *shell) list() {
	items := s.repo.Chats()
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No chats yet. Use 'new <file>' to start one.")
		return
	}
	var selected string
	if sel := s.repo.SelectedChat(); sel != nil {
		selected = sel.ID
	}
	for _, c := range items {
		marker := " "
		if c.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s %s [%s] %s\n    %s\n",
			marker, idStyle.Render(c.ID), titleStyle.Render(c.Title), c.FileType,
			dateStyle.Render(c.Timestamp.Format(timeLayout)), c.LastMessage)
	}
}

func (s *shell) trash() {
	items := s.repo.DeletedChats()
	if len(items) == 0 {
		fmt.Fprintln(s.out, "Trash is empty")
		return
	}
	for _, c := range items {
		fmt.Fprintf(s.out, "  %s %s deleted %s\n",
			idStyle.Render(c.ID), titleStyle.Render(c.Title), dateStyle.Render(c.DeletedAt.Format(timeLayout)))
	}
}

func (s *shell) newChat(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: new <file>")
		return
	}
	c, ok := s.repo.NewChat(strings.Join(args, " "))
	if !ok {
		s.dialog("Could not create chat.")
		return
	}
	fmt.Fprintf(s.out, "Created chat %s %s\n", idStyle.Render(c.ID), titleStyle.Render(c.Title))
}

func (s *shell) open(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: open <id>")
		return
	}
	c, ok := s.repo.Chat(args[0])
	if !ok {
		fmt.Fprintln(s.out, "Chat not found")
		return
	}
	s.repo.SetSelectedChat(&c)
	fmt.Fprintf(s.out, "%s (%s)\n", titleStyle.Render(c.Title), c.FileName)
	for _, m := range c.Messages {
		s.printMessage(m)
	}
}

func (s *shell) send(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: send <text>")
		return
	}
	sel := s.repo.SelectedChat()
	if sel == nil {
		fmt.Fprintln(s.out, "No chat open. Use 'open <id>' first.")
		return
	}
	msg := s.repo.NewMessage(strings.Join(args, " "), models.SenderUser)
	if !s.repo.AddMessage(sel.ID, msg) {
		s.dialog("Could not send message.")
		return
	}
	s.printMessage(msg)
}

func (s *shell) printMessage(m models.Message) {
	who := userStyle.Render("you")
	if m.Sender == models.SenderAI {
		who = aiStyle.Render("ai")
	}
	fmt.Fprintf(s.out, "  %s %s: %s\n", dateStyle.Render(m.Timestamp.Format(timeLayout)), who, m.Content)
}

func (s *shell) withID(args []string, usage string, op func(string) bool, done string) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "Usage: %s <id>\n", usage)
		return
	}
	if !op(args[0]) {
		fmt.Fprintln(s.out, "Chat not found")
		return
	}
	fmt.Fprintln(s.out, done)
}

func (s *shell) export(args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(s.out, "Usage: export <id> <json|yaml|md> [file]")
		return
	}
	c, ok := s.repo.Chat(args[0])
	if !ok {
		fmt.Fprintln(s.out, "Chat not found")
		return
	}
	exp, err := chats.NewExporter(args[1])
	if err != nil {
		s.dialog(err.Error())
		return
	}
	if len(args) == 2 {
		if err := exp.Export(c, s.out); err != nil {
			s.dialog("Export failed: " + err.Error())
		}
		return
	}

	f, err := os.Create(args[2])
	if err != nil {
		s.dialog("Export failed: " + err.Error())
		return
	}
	defer f.Close()
	if err := exp.Export(c, f); err != nil {
		s.dialog("Export failed: " + err.Error())
		return
	}
	fmt.Fprintf(s.out, "Exported to %s\n", args[2])
}

func (s *shell) dialog(msg string) {
	fmt.Fprintln(s.out, dialogStyle.Render(msg))
}
