package main

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/config"
	"github.com/rybkr/argroute/internal/server"
)

type serveCommand struct {
	env  *env
	addr string
}

func (c *serveCommand) Description() string {
	return `Serve dispatch over HTTP and WebSocket.

	POST {"args": [...]} to /api/dispatch, or send the same objects over
	/api/ws. The config file is watched and reloaded while serving.`
}

func (c *serveCommand) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "listen address (default from config)")
}

func (c *serveCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	cfg := c.env.cfg.Server
	if c.addr != "" {
		cfg.Addr = c.addr
	}

	app, err := newApp(c.env, false)
	if err != nil {
		return cli.Result{}, err
	}
	srv := server.New(app, cfg)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	watchCtx, cancel := context.WithCancel(inv.Context)
	defer cancel()
	go func() {
		err := config.Watch(watchCtx, c.env.configPath, inv.Logger, func(next config.Config) {
			e := *c.env
			e.cfg = next
			app, err := newApp(&e, false)
			if err != nil {
				inv.Logger.Error("Rebuilding app failed", "err", err)
				return
			}
			srv.SetApp(app)
		})
		if err != nil {
			inv.Logger.Warn("Config is not watched", "err", err)
		}
	}()

	inv.Printf("Serving %s on http://%s\n", appName, cfg.Addr)

	select {
	case err := <-errc:
		srv.Shutdown()
		if err != nil {
			return cli.Result{}, err
		}
	case <-inv.Context.Done():
		srv.Shutdown()
		<-errc
	}
	return cli.OK(), nil
}
