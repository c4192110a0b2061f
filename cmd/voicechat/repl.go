package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/erikakettleson-openai/erika-webrtc/internal/realtime"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

const help = `commands:
  /start                 connect a new voice session
  /stop                  end the current session
  /instructions <text>   replace the assistant's instructions
  /image <path>          describe an image and have the assistant talk about it
  /log [n]               show the n most recent server events (default 10)
  /quit                  exit
anything else is sent as a text message`

// voiceClient is the part of realtime.Client the REPL drives.
type voiceClient interface {
	Start(ctx context.Context) (*realtime.Session, error)
	Stop()
	Send(ev realtime.ClientEvent) error
	UpdateInstructions(text string) error
	Log() *realtime.DisplayLog
}

type repl struct {
	client    voiceClient
	describer realtime.ImageDescriber
	bridge    *realtime.ImageBridge
	out       io.Writer
	readFile  func(string) ([]byte, error)
}

func newREPL(c voiceClient, d realtime.ImageDescriber, out io.Writer) *repl {
	r := &repl{
		client:    c,
		describer: d,
		bridge:    realtime.NewImageBridge(c),
		out:       &syncWriter{w: out},
		readFile:  os.ReadFile,
	}
	c.Log().Subscribe(func(e types.LogEntry) {
		fmt.Fprintf(r.out, "< %s %s\n", e.Type, e.EventID)
	})
	return r
}

// run reads commands until /quit, EOF or ctx is done.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(r.out, help)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		r.client.Stop()
		return true
	case "/help":
		fmt.Fprintln(r.out, help)
	case "/start":
		s, err := r.client.Start(ctx)
		if err != nil {
			r.report(err)
			return false
		}
		fmt.Fprintf(r.out, "session %s connected\n", s.ID())
	case "/stop":
		r.client.Stop()
		fmt.Fprintln(r.out, "session stopped")
	case "/instructions":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /instructions <text>")
			return false
		}
		r.report(r.client.UpdateInstructions(arg))
	case "/image":
		r.image(ctx, arg)
	case "/log":
		r.printLog(arg)
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintf(r.out, "unknown command %s\n", cmd)
			return false
		}
		r.report(r.client.Send(realtime.NewTextMessage(line)))
	}
	return false
}

func (r *repl) image(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(r.out, "usage: /image <path>")
		return
	}
	data, err := r.readFile(path)
	if err != nil {
		r.report(err)
		return
	}
	desc, err := r.bridge.DescribeAndInject(ctx, r.describer, realtime.EncodeDataURI(data))
	if desc != "" {
		fmt.Fprintf(r.out, "image: %s\n", desc)
	}
	r.report(err)
}

func (r *repl) printLog(arg string) {
	n := 10
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			fmt.Fprintln(r.out, "usage: /log [n]")
			return
		}
		n = v
	}
	entries := r.client.Log().Entries()
	if len(entries) > n {
		entries = entries[:n]
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "#%d %s %s\n", e.Seq, e.Type, e.Event)
	}
}

func (r *repl) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, realtime.ErrChannelNotReady):
		fmt.Fprintln(r.out, "not connected: use /start first")
	case errors.Is(err, realtime.ErrSessionActive):
		fmt.Fprintln(r.out, "a session is already running: use /stop first")
	default:
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
}

// syncWriter serializes REPL output with event lines printed from the
// dispatch goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
