package server

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/termcolor"
)

// DispatchRequest asks the server to run one argument vector. ID is echoed
// back on WebSocket replies.
type DispatchRequest struct {
	ID   string   `json:"id,omitempty"`
	Args []string `json:"args"`
}

// DispatchResponse reports the outcome of a dispatch.
type DispatchResponse struct {
	ID      string   `json:"id,omitempty"`
	Code    int      `json:"code"`
	Command string   `json:"command,omitempty"`
	Words   int      `json:"words,omitempty"`
	Group   string   `json:"group,omitempty"`
	Guesses []string `json:"guesses,omitempty"`
	Stdout  string   `json:"stdout"`
	Stderr  string   `json:"stderr"`
	Error   string   `json:"error,omitempty"`
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
	Group   string `json:"group,omitempty"`
}

// dispatch runs args on a private clone of the current app. A panicking
// handler is reported through the returned error.
func (s *Server) dispatch(ctx context.Context, req DispatchRequest) (resp DispatchResponse, err error) {
	resp.ID = req.ID

	var stdout, stderr bytes.Buffer
	app := s.App().Clone()
	app.Stdout = &stdout
	app.Stderr = &stderr
	app.Color = termcolor.Plain(&stderr)
	capture := &capturingRecorder{next: app.Recorder}
	app.Recorder = capture

	defer func() {
		resp.Stdout, resp.Stderr = stdout.String(), stderr.String()
		rec := capture.last
		resp.Command, resp.Words, resp.Group, resp.Guesses = rec.Command, rec.Words, rec.Group, rec.Guesses
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in dispatch", "args", req.Args, "panic", r)
			res := app.Resolve(req.Args)
			resp.Command, resp.Words, resp.Group = res.Name, res.Words, res.Group
			err = fmt.Errorf("dispatch panicked: %v", r)
			resp.Code = app.Codes.Fail
			resp.Error = err.Error()
		}
	}()

	resp.Code = app.Run(ctx, req.Args)
	return resp, nil
}

// capturingRecorder keeps the record of a dispatch and forwards it.
type capturingRecorder struct {
	next cli.Recorder
	last cli.Record
}

func (c *capturingRecorder) Record(ctx context.Context, rec cli.Record) error {
	c.last = rec
	if c.next == nil {
		return nil
	}
	return c.next.Record(ctx, rec)
}

func commandInfos(app *cli.App) []CommandInfo {
	cmds := app.Commands()
	out := make([]CommandInfo, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, CommandInfo{Name: c.Name, Summary: c.Summary(), Group: c.Group()})
	}
	return out
}
