// Package app wires configuration, logging and the dependency container into
// the command-line surface. Every command maps onto exactly one core
// operation; no invariants live here.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ticketdesk/cmd/ticketdesk/di"
	"ticketdesk/internal/config"
	domain "ticketdesk/internal/domain/ticket"
	ticketuc "ticketdesk/internal/usecase/ticket"
	"ticketdesk/pkg/logger"
)

const usage = `usage: ticketdesk <command> [flags]

commands:
  signup <name> <email> <password>   register a new account
  login <email> <password>           authenticate and open a session
  logout                             close the current session
  whoami                             show the active user
  create --title T [flags]           create a ticket
  list                               list the active user's tickets
  update <id> [flags]                update fields of a ticket
  delete <id>                        delete a ticket
  stats                              show ticket counts by status
`

// App represents the application
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Container *di.Container
}

// New creates a new application instance
func New() (*App, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	container, err := di.NewContainer(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	return &App{Config: cfg, Logger: l, Container: container}, nil
}

// Run restores the previous session and dispatches a single command.
func (a *App) Run(ctx context.Context, args []string) error {
	defer func() {
		if err := a.Container.Close(); err != nil {
			a.Logger.Error("failed to close container", zap.Error(err))
		}
		_ = a.Logger.Sync()
	}()

	a.Container.Sessions.Restore(ctx)

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "signup":
		return a.signup(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.Container.Sessions.Logout(ctx)
	case "whoami":
		return a.whoami()
	case "create":
		return a.create(ctx, rest)
	case "list":
		return a.list(ctx)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "stats":
		return a.stats(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *App) signup(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("signup requires <name> <email> <password>")
	}
	u, err := a.Container.Auth.Signup(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if err := a.Container.Sessions.Login(ctx, u); err != nil {
		return err
	}
	fmt.Printf("welcome, %s (%s)\n", u.Name, u.Email)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("login requires <email> <password>")
	}
	u, err := a.Container.Auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.Container.Sessions.Login(ctx, u); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", u.Name, u.Email)
	return nil
}

func (a *App) whoami() error {
	u, err := a.Container.Sessions.Current()
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> (id %s)\n", u.Name, u.Email, u.ID)
	return nil
}

func (a *App) create(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("create", pflag.ContinueOnError)
	title := flags.String("title", "", "ticket title")
	description := flags.String("description", "", "ticket description")
	status := flags.String("status", string(domain.StatusOpen), "open, in_progress or closed")
	priority := flags.String("priority", string(domain.PriorityMedium), "low, medium or high")
	if err := flags.Parse(args); err != nil {
		return err
	}

	created, err := a.Container.Tickets.Create(ctx, ticketuc.CreateRequest{
		Title:       *title,
		Description: *description,
		Status:      domain.Status(*status),
		Priority:    domain.Priority(*priority),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created ticket %s\n", created.ID)
	return nil
}

func (a *App) list(ctx context.Context) error {
	tickets, err := a.Container.Tickets.List(ctx)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		fmt.Println("no tickets")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY")
	for _, t := range tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority)
	}
	return w.Flush()
}

func (a *App) update(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("update requires <id>")
	}
	id, rest := args[0], args[1:]

	flags := pflag.NewFlagSet("update", pflag.ContinueOnError)
	title := flags.String("title", "", "new title")
	description := flags.String("description", "", "new description")
	status := flags.String("status", "", "new status")
	priority := flags.String("priority", "", "new priority")
	if err := flags.Parse(rest); err != nil {
		return err
	}

	// Only flags the caller actually set become part of the partial update
	var in ticketuc.UpdateRequest
	if flags.Changed("title") {
		in.Title = title
	}
	if flags.Changed("description") {
		in.Description = description
	}
	if flags.Changed("status") {
		s := domain.Status(*status)
		in.Status = &s
	}
	if flags.Changed("priority") {
		p := domain.Priority(*priority)
		in.Priority = &p
	}

	updated, err := a.Container.Tickets.Update(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Printf("updated ticket %s (%s/%s)\n", updated.ID, updated.Status, updated.Priority)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete requires <id>")
	}
	if err := a.Container.Tickets.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted ticket %s\n", args[0])
	return nil
}

func (a *App) stats(ctx context.Context) error {
	stats, err := a.Container.Tickets.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("total: %d\topen: %d\tin progress: %d\tclosed: %d\n",
		stats.Total, stats.Open, stats.InProgress, stats.Closed)
	return nil
}

// initLogger initializes the application logger
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     cfg.Logger.OutputPath,
		EnableSampling: cfg.Logger.EnableSampling,
		ServiceName:    cfg.Logger.ServiceName,
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    getEnvironment(),
	})
}

// getConfigPath returns the configuration path
func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}

// getEnvironment returns the application environment
func getEnvironment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "development"
}
