package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"google.golang.org/grpc"
)

// ChatAPI is the server surface the CLI needs. *client.GRPCClient
// implements it.
type ChatAPI interface {
	Login(ctx context.Context, password string, plaintext bool) error
	Logout()
	LoggedIn() bool
	Send(ctx context.Context, req *chatrpc.SendMessageRequest) (*chatrpc.Message, error)
	List(ctx context.Context, req *chatrpc.ListMessagesRequest) ([]*chatrpc.Message, error)
	Edit(ctx context.Context, id, text string) (*chatrpc.Message, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*chatrpc.StatsResponse, error)
	Watch(ctx context.Context, fn func(*chatrpc.Event)) error
	Close() error
}

type App struct {
	config *config.Config
	api    ChatAPI
	reader *bufio.Reader
	out    io.Writer

	mu          sync.Mutex
	watchCancel context.CancelFunc
	// last listed messages by id, for save
	seen map[string]*chatrpc.Message
	// parent of the downloads directory; empty is the working directory
	downloadsBase string
}

func NewApp(c *config.Config) (*App, error) {
	var opts []grpc.DialOption
	if c.MaxMessageSize > 0 {
		opts = append(opts, client.WithMaxMessageSize(c.MaxMessageSize))
	}
	apiClient, err := client.NewChatClient(c.ServerEndpointAddr, c.RequestTimeout, opts...)
	if err != nil {
		return nil, err
	}
	return newApp(c, apiClient, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api ChatAPI, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		api:    api,
		reader: bufio.NewReader(in),
		out:    out,
		seen:   map[string]*chatrpc.Message{},
	}
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return "(guest)"
	}
	a.mu.Lock()
	watching := a.watchCancel != nil
	a.mu.Unlock()
	if watching {
		return "(online, watching)"
	}
	return "(online)"
}

// Run logs in and then serves the REPL until the user quits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.api.Close()
	defer a.Unwatch(ctx)

	printlnFn("Welcome to gophchat CLI (type 'help' for commands)")

	if err := a.Login(ctx); err != nil {
		printlnFn(err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
