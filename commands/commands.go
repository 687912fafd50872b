// Package commands implements the in-chat moderator command surface. A
// command is a "!"-prefixed message from a sufficiently privileged sender;
// everything else passes through to the automod pipeline untouched.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/chatward/chatward/chat"
	"github.com/chatward/chatward/engine"
	"github.com/chatward/chatward/nuke"
)

// Command is one registered chat command.
type Command struct {
	Name    string
	MinRole chat.Role
	Usage   string
	Run     func(ctx context.Context, d *Deps, msg *chat.Message, args []string) (string, error)
}

// Deps is everything a handler may touch. The engine carries the stores;
// the sweeper is separate because it needs the dispatcher and audit log
// wiring of its own.
type Deps struct {
	Engine  *engine.Engine
	Sweeper *nuke.Sweeper
	Logger  *slog.Logger
}

// Registry routes "!" commands by name.
type Registry struct {
	deps     *Deps
	commands map[string]*Command
}

func NewRegistry(deps *Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Registry{
		deps:     deps,
		commands: make(map[string]*Command),
	}
	for _, c := range builtins {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c *Command) {
	r.commands[c.Name] = c
}

// Handle runs the message as a command if it is one. The bool reports
// whether the message was consumed; non-commands must continue to the
// pipeline.
func (r *Registry) Handle(ctx context.Context, msg *chat.Message) (string, bool) {
	if !strings.HasPrefix(msg.Text, "!") {
		return "", false
	}
	fields := strings.Fields(msg.Text[1:])
	if len(fields) == 0 {
		return "", false
	}
	cmd, ok := r.commands[strings.ToLower(fields[0])]
	if !ok {
		return "", false
	}
	if !msg.Role().AtLeast(cmd.MinRole) {
		return "", true
	}
	reply, err := cmd.Run(ctx, r.deps, msg, fields[1:])
	if err != nil {
		r.deps.Logger.Warn("command failed", "command", cmd.Name, "channel", msg.Channel, "moderatorID", msg.UserID, "err", err)
		return fmt.Sprintf("%s: %s", cmd.Name, err), true
	}
	return reply, true
}

// Help lists registered commands, for the !help reply.
func (r *Registry) Help() string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, "!"+name)
	}
	sort.Strings(names)
	return "commands: " + strings.Join(names, ", ")
}

// targetUser normalizes a "@name" or bare user argument.
func targetUser(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing user argument")
	}
	return strings.TrimPrefix(args[0], "@"), nil
}
