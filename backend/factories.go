package backend

import (
	"net/http"

	"github.com/tailored-agentic-units/storageproxy/local"
	"github.com/tailored-agentic-units/storageproxy/remote"
	"github.com/tailored-agentic-units/storageproxy/rpc"
	"github.com/tailored-agentic-units/storageproxy/table"
)

func newRemote(cfg *Config, deps Deps) (table.Storage, error) {
	transport := deps.Transport
	if transport == nil {
		if cfg.Endpoint == "" {
			return nil, ErrNoEndpoint
		}
		transport = rpc.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg.Endpoint)
	}

	opts := []remote.Option{remote.WithTransport(transport)}
	if deps.Observer != nil {
		opts = append(opts, remote.WithObserver(deps.Observer))
	}
	if deps.FatalHandler != nil {
		opts = append(opts, remote.WithFatalHandler(deps.FatalHandler))
	}

	st, err := remote.New(&cfg.Remote, opts...)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newLocal(cfg *Config, deps Deps) (table.Storage, error) {
	var opts []local.Option
	if deps.Observer != nil {
		opts = append(opts, local.WithObserver(deps.Observer))
	}

	st, err := local.Open(&cfg.Local, opts...)
	if err != nil {
		return nil, err
	}
	return st, nil
}
