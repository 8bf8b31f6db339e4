// Package replay reads capture files and logs every packet as a "packet"
// event through the output context.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"firestige.xyz/evelog/internal/config"
	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/internal/eve"
	"firestige.xyz/evelog/internal/metrics"
	"firestige.xyz/evelog/internal/output"
	"firestige.xyz/evelog/internal/varstore"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

const queueSize = 1024

// Stats summarizes one replay run.
type Stats struct {
	Packets uint64 // frames read
	Logged  uint64
	Skipped uint64 // frames that could not be decoded
	Errors  uint64 // events that could not be written
}

// Replayer feeds capture files through a flow table into worker goroutines.
// Flow state and ids persist across files.
type Replayer struct {
	cfg   config.ReplayConfig
	out   *output.Output
	flows *FlowTable
}

// New creates a replayer. Port labels are registered in names as flow bits.
func New(cfg config.ReplayConfig, out *output.Output, names *varstore.Store) *Replayer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Replayer{
		cfg:   cfg,
		out:   out,
		flows: NewFlowTable(cfg.FlowTimeout, cfg.Labels, names),
	}
}

type counters struct {
	packets, logged, skipped, errors atomic.Uint64
}

func (c *counters) stats() Stats {
	return Stats{
		Packets: c.packets.Load(),
		Logged:  c.logged.Load(),
		Skipped: c.skipped.Load(),
		Errors:  c.errors.Load(),
	}
}

// Run replays one file. It returns when the file is exhausted or ctx is
// cancelled; in both cases every queued packet is logged first.
func (r *Replayer) Run(ctx context.Context, path string) (Stats, error) {
	src, err := OpenSource(path)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()

	dec, err := NewDecoder(src.LinkType())
	if err != nil {
		return Stats{}, err
	}

	r.out.SetPcapFilename(path)
	slog.Info("replay starting", "file", path, "link_type", src.LinkType().String(), "workers", r.cfg.Workers)

	var c counters
	queues := make([]chan *core.Packet, r.cfg.Workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan *core.Packet, queueSize)
		wg.Add(1)
		go func(q <-chan *core.Packet) {
			defer wg.Done()
			r.work(ctx, q, &c)
		}(queues[i])
	}

	readErr := r.read(ctx, src, dec, queues, &c)

	for _, q := range queues {
		close(q)
	}
	wg.Wait()

	st := c.stats()
	slog.Info("replay finished",
		"file", path,
		"packets", st.Packets,
		"logged", st.Logged,
		"skipped", st.Skipped,
		"errors", st.Errors,
	)
	return st, readErr
}

func (r *Replayer) read(ctx context.Context, src *Source, dec *Decoder, queues []chan *core.Packet, c *counters) error {
	var cnt uint64
	for {
		if ctx.Err() != nil {
			return nil
		}

		data, ci, err := src.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("replay %s: %w", src.Path(), err)
		}
		cnt++
		c.packets.Add(1)

		p, err := dec.Decode(data, ci)
		if err != nil {
			c.skipped.Add(1)
			metrics.ReplayPacketsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
			slog.Debug("packet skipped", "pcap_cnt", cnt, "error", err)
			continue
		}
		p.PcapCnt = cnt
		r.flows.Assign(p)

		shard := 0
		if p.Flow != nil {
			shard = int(p.Flow.ID % uint64(len(queues)))
		}
		select {
		case queues[shard] <- p:
		case <-ctx.Done():
			return nil
		}
	}
}

// work logs every packet on q until it is closed. Packets already queued
// when ctx is cancelled are still written, so the sink never sees the
// cancellation or its deadline.
func (r *Replayer) work(ctx context.Context, q <-chan *core.Packet, c *counters) {
	logCtx := context.WithoutCancel(ctx)
	th := r.out.NewThread()
	for p := range q {
		if err := th.Log(logCtx, r.event(th.Settings(), p)); err != nil {
			c.errors.Add(1)
			metrics.ReplayPacketsTotal.WithLabelValues(metrics.ResultError).Inc()
			slog.Debug("packet event not written", "pcap_cnt", p.PcapCnt, "error", err)
			continue
		}
		c.logged.Add(1)
		metrics.ReplayPacketsTotal.WithLabelValues(metrics.ResultLogged).Inc()
	}
}

func (r *Replayer) event(s *eve.Settings, p *core.Packet) *jsonbuilder.Builder {
	js := s.CreateHeader(p, eve.DirPacket, "packet", nil)
	if p.Proto == core.ProtoTCP {
		_ = js.OpenObject("tcp")
		eve.AddTCPFlags(js, p.TCPFlags)
		_ = js.Close()
	}
	s.AddCommonOptions(js, p, p.Flow)
	if r.cfg.LogPacket {
		eve.AddPacket(js, p, r.cfg.PacketMaxLength)
	}
	return js
}
