package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	zerr "coopsched/errors"
	"coopsched/internal/host"
	"coopsched/internal/job"
	"coopsched/internal/log"
	"coopsched/internal/metrics"
	"coopsched/internal/sched"
	"coopsched/internal/trace"
)

const metricsReadHeaderTimeout = 5 * time.Second

type runFlags struct {
	host        string
	tasks       int
	workMS      int
	csvPath     string
	metricsAddr string
}

// demoOrder is submitted first; its callbacks print 1 to 5 in submission
// order and run as 2 4 5 1 3.
var demoOrder = []sched.Priority{
	sched.LowPriority,
	sched.ImmediatePriority,
	sched.IdlePriority,
	sched.UserBlockingPriority,
	sched.NormalPriority,
}

func newRunCmd(configPath *string) *cobra.Command {
	flags := runFlags{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the priority demo followed by a batch of busy tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sched.Load(*configPath)
			if err != nil {
				return err
			}
			if flags.host != "" {
				cfg.Host = flags.host
			}

			return run(cmd.Context(), cmd, cfg, flags)
		},
	}

	runCmd.Flags().StringVar(&flags.host, "host", "", "host backend: manual, loop or frame (overrides the config)")
	runCmd.Flags().IntVarP(&flags.tasks, "tasks", "n", 20, "number of busy normal-priority tasks")
	runCmd.Flags().IntVar(&flags.workMS, "work-ms", 2, "busy time per task in milliseconds")
	runCmd.Flags().StringVar(&flags.csvPath, "csv", "", "write a CSV event trace to this file")
	runCmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	return runCmd
}

// tally counts work loop outcomes and closes done once want tasks have left
// the queue.
type tally struct {
	want     int64
	finished atomic.Int64
	failed   atomic.Int64
	yields   atomic.Int64
	turns    atomic.Int64
	done     chan struct{}
	once     sync.Once
}

func newTally(want int) *tally {
	return &tally{want: int64(want), done: make(chan struct{})}
}

func (t *tally) Observe(ev sched.Event) {
	switch ev.Kind {
	case sched.EventFinish:
		t.settle(t.finished.Add(1) + t.failed.Load())
	case sched.EventFail:
		t.settle(t.failed.Add(1) + t.finished.Load())
	case sched.EventYield:
		t.yields.Add(1)
		t.turns.Add(1)
	case sched.EventIdle:
		t.turns.Add(1)
	}
}

func (t *tally) settle(n int64) {
	if n >= t.want {
		t.once.Do(func() { close(t.done) })
	}
}

// driver runs a host until done is closed or ctx ends.
type driver func(ctx context.Context, done <-chan struct{}) error

func newHost(name string, cfg sched.Config, logger log.Logger) (sched.Host, driver, error) {
	switch name {
	case "manual":
		m := host.NewManual()

		return m, func(context.Context, <-chan struct{}) error {
			m.Drain(0)

			return nil
		}, nil
	case "loop":
		l := host.NewLoop(logger)

		return l, func(ctx context.Context, done <-chan struct{}) error {
			go func() {
				select {
				case <-done:
				case <-ctx.Done():
				}
				l.Close()
			}()

			return l.Run(ctx)
		}, nil
	case "frame":
		f := host.NewFrame(clock.New())

		return f, func(ctx context.Context, done <-chan struct{}) error {
			f.Start(cfg.FrameInterval())
			defer f.Stop()

			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", zerr.ErrUnknownHost, name)
	}
}

func run(ctx context.Context, cmd *cobra.Command, cfg sched.Config, flags runFlags) (runErr error) {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	h, drive, err := newHost(cfg.Host, cfg, logger)
	if err != nil {
		return err
	}

	total := len(demoOrder) + max(flags.tasks, 0)
	counts := newTally(total)
	opts = append(opts, sched.WithLogger(logger), sched.WithObserver(counts))

	var reg *prometheus.Registry
	if flags.metricsAddr != "" {
		reg = prometheus.NewRegistry()
		col, err := metrics.New(reg)
		if err != nil {
			return err
		}
		opts = append(opts, sched.WithObserver(col))
	}

	if flags.csvPath != "" {
		tr, err := trace.Open(flags.csvPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := tr.Close(); cerr != nil && runErr == nil {
				runErr = fmt.Errorf("csv trace %s: %w", flags.csvPath, cerr)
			}
		}()
		opts = append(opts, sched.WithObserver(tr))
	}

	out := cmd.OutOrStdout()
	clk := clock.New()
	s := sched.New(h, opts...)
	submit(s, clk, out, flags)

	logger.Info().Str("host", cfg.Host).Int("tasks", total).Msg("run: started")
	start := clk.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if reg != nil {
		srv := &http.Server{
			Addr:              flags.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}

		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})
		g.Go(func() error {
			<-gctx.Done()

			return srv.Shutdown(context.Background())
		})
	}

	g.Go(func() error {
		defer cancel()

		return drive(gctx, counts.done)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("run: stopped")

		return err
	}

	fmt.Fprintf(out, "tasks=%d failed=%d yields=%d turns=%d elapsed=%s\n",
		counts.finished.Load()+counts.failed.Load(), counts.failed.Load(),
		counts.yields.Load(), counts.turns.Load(), clk.Since(start).Round(time.Millisecond))

	return nil
}

func submit(s *sched.Scheduler, clk clock.Clock, out io.Writer, flags runFlags) {
	for i, p := range demoOrder {
		s.Schedule(p, job.Print(out, strconv.Itoa(i+1)))
	}

	work := time.Duration(max(flags.workMS, 0)) * time.Millisecond
	for range flags.tasks {
		s.Schedule(sched.NormalPriority, job.Busy(clk, work))
	}
}
