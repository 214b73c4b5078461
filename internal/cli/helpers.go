package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/hexcast/internal/config"
	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger from cfg.
// It writes to Stderr so that readings and JSON-RPC own Stdout.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.LogFormat == "json"), nil
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// ErrAborted is returned when the user quits a prompt.
var ErrAborted = errors.New("aborted")

// PromptTosses reads n tosses from r, one per line, prompting on w.
// Invalid entries are reported and asked again; "quit" or "exit" abort.
func PromptTosses(ctx context.Context, r io.Reader, w io.Writer, n int) ([]domain.Toss, error) {
	scanner := bufio.NewScanner(r)
	tosses := make([]domain.Toss, 0, n)
	for len(tosses) < n {
		if err := ctx.Err(); err != nil {
			return tosses, err
		}
		fmt.Fprintf(w, "Toss %d/%d (e.g. HHT or 3 3 2): ", len(tosses)+1, n)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return tosses, err
			}
			return tosses, io.ErrUnexpectedEOF
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return tosses, ErrAborted
		}
		t, err := iching.ParseToss(line)
		if err != nil {
			PrintSystemMessage(w, "%v", err)
			continue
		}
		tosses = append(tosses, t)
	}
	return tosses, nil
}

// ParseTossList parses tosses separated by commas or spaces between groups,
// e.g. "TTH,THH,HTT,HHH,THT,HHT" or "2,2,3 2,3,3 ...".
func ParseTossList(s string) ([]domain.Toss, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, domain.NewInvalidInput("tosses", "", "no tosses given")
	}
	var groups []string
	if strings.ContainsAny(s, "HhTt") {
		groups = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	} else {
		groups = strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ';' })
	}
	tosses := make([]domain.Toss, 0, len(groups))
	for _, g := range groups {
		t, err := iching.ParseToss(g)
		if err != nil {
			return nil, err
		}
		tosses = append(tosses, t)
	}
	return tosses, nil
}
