package app

import (
	"context"
	"strings"

	"castbot/internal/config"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

// reloadLoop applies committed configs to the running components. Sections
// that cannot change live are reported once per reload.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.apply(last, next)
			last = next
		}
	}
}

func (a *App) apply(prev, next *config.Config) {
	ch := config.SummarizeChange(prev, next)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.SetNotifier(kit.ChatNotifier{Adapter: a.adapter, To: logTarget(next)})
	a.logs.Apply(mapLogConfig(next))

	a.pipeline.SetSources(mapSources(next))
	a.dist.SetOptions(mapDistributeOptions(next))
	a.format.SetOptions(mapFormatOptions(next))
	if a.dedup != nil {
		a.dedup.SetOptions(mapDedupOptions(next))
	}
	if mapStorageConfig(prev) != mapStorageConfig(next) {
		a.log.Warn("dedup backend changed; restart required", logx.String("driver", next.Dedup.Driver))
	}
	if len(ch.Restart) > 0 {
		a.log.Warn("config sections need a restart to take effect", logx.String("sections", strings.Join(ch.Restart, ",")))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Fields...)
	a.log.Info("config reloaded", fields...)
}
