package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Send(ctx context.Context, args []string) error
	SendFile(ctx context.Context, path string) error
	SendImage(ctx context.Context, path string) error
	List(ctx context.Context, args []string) error
	Search(ctx context.Context, text string) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Save(ctx context.Context, id string) error
	Stats(ctx context.Context) error
	Watch(ctx context.Context) error
	Unwatch(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  help, login, exit | quit
//
//	Logged in:
//	  send [text]        send text (prompts when no text given)
//	  sendfile <path>    send a file attachment
//	  sendimage <path>   send an image
//	  (l)ist [n]         show the last n messages
//	  search <text>      case-insensitive text search
//	  edit <id>          replace a message's text
//	  delete <id>        delete a message
//	  save <id>          write a listed message's attachment to ./downloads
//	  stats              storage usage
//	  watch / unwatch    start or stop the live event stream
//	  logout, exit | quit
//
// Errors returned by handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gophchat %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("error:", err)
		}
	}
}

func needArg(args []string, usage string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return args[0], nil
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn("Available commands: send, sendfile, sendimage, (l)ist, search, edit, delete, save, stats, watch, unwatch, logout, exit")
		} else {
			printlnFn("Available commands: login, exit")
		}
		return nil
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		if isKnown(cmd) {
			return fmt.Errorf("please login first")
		}
		printlnFn("Unknown command:", cmd)
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "send":
		return a.Send(ctx, args)
	case "sendfile":
		p, err := needArg(args, "sendfile <path>")
		if err != nil {
			return err
		}
		return a.SendFile(ctx, p)
	case "sendimage":
		p, err := needArg(args, "sendimage <path>")
		if err != nil {
			return err
		}
		return a.SendImage(ctx, p)
	case "l", "list":
		return a.List(ctx, args)
	case "search":
		if len(args) == 0 {
			return fmt.Errorf("usage: search <text>")
		}
		return a.Search(ctx, strings.Join(args, " "))
	case "edit":
		id, err := needArg(args, "edit <id>")
		if err != nil {
			return err
		}
		return a.Edit(ctx, id)
	case "delete":
		id, err := needArg(args, "delete <id>")
		if err != nil {
			return err
		}
		return a.Delete(ctx, id)
	case "save":
		id, err := needArg(args, "save <id>")
		if err != nil {
			return err
		}
		return a.Save(ctx, id)
	case "stats":
		return a.Stats(ctx)
	case "watch":
		return a.Watch(ctx)
	case "unwatch":
		return a.Unwatch(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}

var knownCommands = map[string]bool{
	"logout": true, "send": true, "sendfile": true, "sendimage": true, "l": true, "list": true,
	"search": true, "edit": true, "delete": true, "save": true, "stats": true, "watch": true, "unwatch": true,
}

func isKnown(cmd string) bool {
	return knownCommands[cmd]
}
