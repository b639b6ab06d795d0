package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/alertkeeper/internal/client/client"
	"github.com/dmitrijs2005/alertkeeper/internal/client/config"
)

type App struct {
	config     *config.Config
	client     client.Client
	newClient  func(*config.Config) (client.Client, error)
	reader     *bufio.Reader
	out        io.Writer
	jsonOutput bool
}

func NewApp(c *config.Config) *App {
	return &App{
		config:    c,
		newClient: newHTTPClient,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}
}

func newHTTPClient(c *config.Config) (client.Client, error) {
	return client.NewHTTPClient(c.ServerURL, c.Timeout)
}

// Run executes the command line args (without the program name).
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
