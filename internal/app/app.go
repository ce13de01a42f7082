package app

import (
	"context"
	"fmt"
	"time"

	"pulse/internal/config"
	"pulse/internal/eventbus"
	"pulse/internal/journal"
	"pulse/internal/runtime/supervisor"
	"pulse/internal/sched"
	logx "pulse/pkg/logx"
)

// App wires the daemon together: config, logging, event bus, the scheduler
// with its built-in probe tasks, the run journal, and the optional pprof
// server.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store journal.Store

	sched sched.Scheduler
	pprof *pprofServer
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Journal (optional).
	var store journal.Store
	if jc, enabled := mapJournalConfig(cfg); enabled {
		st, err := journal.Open(jc, log.With(logx.String("comp", "journal")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("journal enabled", logx.String("driver", jc.Driver))
	}

	schedLog := log.With(logx.String("comp", "sched"))
	sink := sched.MultiSink{sched.NewLogSink(schedLog), sched.NewBusSink(bus)}
	scheduler, err := buildScheduler(cfg.Scheduler, schedLog, sink, bus)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		logSvc.Close()
		return nil, err
	}

	if err := registerProbes(scheduler, cfg.Probes, log); err != nil {
		if store != nil {
			_ = store.Close()
		}
		logSvc.Close()
		return nil, err
	}

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		sched:   scheduler,
		pprof:   newPprofServer(log),
	}, nil
}

// Scheduler exposes the task registry so callers (main, tests) can register
// their own tasks before or after Start.
func (a *App) Scheduler() sched.Scheduler { return a.sched }

// Done is closed when the app run context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	// The worker pool is built once: reject hot reloads that try to resize or
	// restrategize it instead of silently ignoring them.
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		cur := a.cfgm.Get()
		if cur != nil && cur.Scheduler != cfg.Scheduler {
			return fmt.Errorf("scheduler settings are fixed at startup; restart to apply")
		}
		return nil
	})

	if err := a.sched.Initialize(); err != nil {
		return err
	}
	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	if a.store != nil {
		rec := journal.NewRecorder(a.store, a.bus, a.log)
		a.sup.Go("journal.recorder", rec.Run)
	}

	a.pprof.Apply(a.sup.Context(), a.cfgm.Get().Pprof)

	// Debug-level event tap for operational visibility.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("topic", string(e.Topic)), logx.Time("time", e.Time))
			}
		}
	})

	// Hot reload fan-out: logging and pprof apply live; journal needs a
	// restart, scheduler changes never get this far (validator above).
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.logs.Apply(mapLogConfig(newCfg.Logging))
				a.pprof.Apply(c, newCfg.Pprof)
				if _, enabled := mapJournalConfig(newCfg); enabled != (a.store != nil) {
					a.log.Warn("journal config changed; restart required for changes to take effect")
				}
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.bus.Publish(eventbus.Event{Topic: eventbus.TopicAppStarted})
	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.bus.Publish(eventbus.Event{Topic: eventbus.TopicAppStopping})

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Run one shutdown step with an upper bound so a stuck component cannot
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(context.Context) error {
		a.sched.Terminate()
		return nil
	})
	step("pprof", time.Second, func(c context.Context) error {
		a.pprof.Stop(c)
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error {
		return a.sup.Wait(c)
	})
	step("journal", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
