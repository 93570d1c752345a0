// Package pipeline drives the Source -> Decoder -> Processor -> Sink flow.
//
// The driver reads its own settings (buffer size, per-stage worker ceilings,
// overflow policy, source retry) from a config.Resolver, builds every
// collaborator through a component.Registry, and runs all stage workers on a
// single worker.Scheduler. Stages talk only through bounded buffer.Channel
// values: each worker of a producing stage owns one Sender, and a channel
// closes when its last Sender does, which is how end of stream cascades from
// the source down to the sink.
//
// Basic usage:
//
//	registry := component.NewRegistry()
//	componentregistry.Register(registry)
//
//	p, err := pipeline.New(cfg, registry, component.Dependencies{Logger: logger})
//	if err != nil {
//		return err
//	}
//	if err := p.Start(ctx); err != nil {
//		return err
//	}
//	<-ctx.Done()
//	return p.Stop(10 * time.Second)
//
// Failure handling:
//
//   - a decoder or processor error drops that one message
//   - a transient source error restarts the source per source.retry.*
//   - any other source error, and a fatal sink error, aborts the run
//
// Each stage moves through Configured, Running, Draining or Failed, and
// Stopped. States exposes the current state and the bee_stage_state gauge
// exports it.
package pipeline
