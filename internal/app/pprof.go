package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"pulse/internal/config"
	logx "pulse/pkg/logx"
)

// pprofServer manages the lifecycle of the debug HTTP listener. Apply is
// idempotent: it starts, stops, or rebinds the server to match the config.
type pprofServer struct {
	log  logx.Logger
	srv  *http.Server
	ln   net.Listener
	addr string
}

func newPprofServer(log logx.Logger) *pprofServer {
	return &pprofServer{log: log.With(logx.String("comp", "pprof"))}
}

// Apply starts or stops the server according to cfg.
// Callers serialize Apply/Stop (the config reload loop is single-threaded).
func (p *pprofServer) Apply(ctx context.Context, cfg config.PprofConfig) {
	if !cfg.Enabled {
		p.Stop(ctx)
		return
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if p.srv != nil && p.addr == addr {
		return
	}
	p.Stop(ctx)
	p.start(cfg, addr)
}

func (p *pprofServer) start(cfg config.PprofConfig, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Durations validated at config load; errors mean zero (disabled).
	read, _ := config.ParseDurationField("pprof.read_timeout", cfg.ReadTimeout)
	write, _ := config.ParseDurationField("pprof.write_timeout", cfg.WriteTimeout)
	idle, _ := config.ParseDurationField("pprof.idle_timeout", cfg.IdleTimeout)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		p.log.Warn("pprof listen failed", logx.String("addr", addr), logx.Err(err))
		return
	}

	p.srv = srv
	p.ln = ln
	p.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Warn("pprof server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	p.log.Info("pprof enabled", logx.String("addr", p.addr))
}

// Stop gracefully shuts the server down. No-op when not running.
func (p *pprofServer) Stop(ctx context.Context) {
	if p.srv == nil {
		return
	}
	srv, ln, addr := p.srv, p.ln, p.addr
	p.srv, p.ln, p.addr = nil, nil, ""

	shutdownCtx := ctx
	if shutdownCtx == nil {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.log.Warn("pprof shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	if ln != nil {
		_ = ln.Close()
	}
	p.log.Info("pprof disabled", logx.String("addr", addr))
}

// Addr reports the actual listen address if running.
func (p *pprofServer) Addr() string { return p.addr }
