package app

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// handlerFn handles one dispatched command.
type handlerFn func(ctx context.Context, args []string)

// Router maps page command words to handlers. Controllers bind their
// commands during Init; navigation resets the router so a page's commands
// never leak into the next page. Binding the same command twice replaces
// the earlier handler, which makes a repeated bind harmless.
type Router struct {
	mu       sync.Mutex
	handlers map[string]handlerFn
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]handlerFn)}
}

// Bind registers fn for command. Satisfies controller.Binder.
func (r *Router) Bind(command string, fn func(ctx context.Context, args []string)) {
	r.mu.Lock()
	r.handlers[command] = fn
	r.mu.Unlock()
}

// Reset drops every bound command. Called on page navigation before the
// next controller binds its own.
func (r *Router) Reset() {
	r.mu.Lock()
	r.handlers = make(map[string]handlerFn)
	r.mu.Unlock()
}

// Dispatch parses line into a command word and arguments and runs the bound
// handler. It reports false when no handler is bound for the word.
func (r *Router) Dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	r.mu.Lock()
	fn, ok := r.handlers[fields[0]]
	r.mu.Unlock()
	if !ok {
		return false
	}
	fn(ctx, fields[1:])
	return true
}

// Commands returns the bound command words in sorted order, for the help
// line.
func (r *Router) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
