// Package updates is the plugin driving the scheduled update pipeline
// over the tracked dictionary watch list.
package updates

import (
	"context"
	"time"

	"nsiwatch/internal/config"
	"nsiwatch/internal/pipeline"
	"nsiwatch/internal/plugin"
	"nsiwatch/internal/scheduler"
)

const sweepTimeout = 10 * time.Minute

type Plugin struct {
	plugin.Base
	checker  *pipeline.Checker
	interval int
}

func New(checker *pipeline.Checker, cfg *config.Config) *Plugin {
	// Development runs tight cycles so changes show up immediately.
	interval := 15
	if cfg.Development() {
		interval = 1
	}
	return &Plugin{
		Base: plugin.Base{
			PluginName:    "updates",
			PluginVersion: "1.0.0",
			Display:       "Dictionary updates",
			Desc:          "Watches tracked dictionaries for new versions",
			Access:        plugin.AccessAll,
		},
		checker:  checker,
		interval: interval,
	}
}

func (p *Plugin) ScheduledTasks() []scheduler.Task {
	return []scheduler.Task{{
		Name:     "update-check",
		Interval: p.interval,
		Unit:     scheduler.Minutes,
		Run:      p.sweep,
	}}
}

func (p *Plugin) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	p.checker.CheckAll(ctx)
}
