package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cargotrack/routeplay/internal/stream"
)

const remoteTimeout = 15 * time.Second

// runRemote sends one command to a running hub and prints the reply.
// args[0] is the command name, the rest are its arguments.
func runRemote(ctx context.Context, url, secret string, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("--remote needs a command, e.g. %s --remote ws://host/ws :PLAYBACK:STATUS:", AppName)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := stream.Dial(url, secret, logger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	result, err := r.Command(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}
	return printJSON(stdout, result)
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
