package probes

import (
	"context"
	"errors"
	"sort"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"

	logx "pulse/pkg/logx"
)

// speedtestTimeout bounds one full measurement (server discovery plus the
// three sub-tests). Runs that exceed it are reported as failures.
const speedtestTimeout = 5 * time.Minute

// Speedtest measures download, upload and latency against the closest
// speedtest.net server and logs the result. It is expensive, so it is meant
// to be wrapped in a cron-gated task rather than run on a short interval.
type Speedtest struct {
	log logx.Logger
}

func NewSpeedtest(log logx.Logger) *Speedtest {
	return &Speedtest{log: log.With(logx.String("probe", "speedtest"))}
}

// Run performs one measurement. It fits the cron task callback signature.
func (p *Speedtest) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), speedtestTimeout)
	defer cancel()

	start := time.Now()

	client := st.New()
	defer func() {
		// Drop per-run snapshots and buffers promptly.
		client.Snapshots().Clean()
		client.Reset()
	}()

	servers, err := client.FetchServerListContext(ctx)
	if err != nil {
		return err
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return errors.New("speedtest: no servers available")
	}

	// Closest server only: one full test per run is enough for trend data.
	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	s := servers[0]

	if err := s.PingTestContext(ctx, nil); err != nil {
		return err
	}
	if err := s.DownloadTestContext(ctx); err != nil {
		return err
	}
	if err := s.UploadTestContext(ctx); err != nil {
		return err
	}

	p.log.Info("speedtest complete",
		logx.String("server", s.Name),
		logx.String("country", s.Country),
		logx.Float64("download_mbps", s.DLSpeed.Mbps()),
		logx.Float64("upload_mbps", s.ULSpeed.Mbps()),
		logx.Duration("ping", s.Latency),
		logx.Duration("took", time.Since(start).Truncate(time.Millisecond)),
	)
	return nil
}
