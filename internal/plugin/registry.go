package plugin

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"nsiwatch/internal/config"
	"nsiwatch/internal/scheduler"
)

// ActionPrefix is where plugin actions are mounted on the mux.
const ActionPrefix = "/api/actions/"

// Registry owns the registered plugin instances. Plugins are
// registered once, from an explicit startup list; there is no
// runtime discovery.
type Registry struct {
	cfg     *config.Config
	plugins []Plugin // registration order
	byName  map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg, byName: make(map[string]Plugin)}
}

// Register initializes and adopts a plugin. An initialization error
// or panic is logged and reported as false; it never propagates, and
// the registry stays usable.
func (r *Registry) Register(p Plugin) bool {
	if _, dup := r.byName[p.Name()]; dup {
		log.Error().Str("plugin", p.Name()).Msg("registry: duplicate plugin name")
		return false
	}

	if err := initialize(p); err != nil {
		log.Error().Str("plugin", p.Name()).Err(err).Msg("registry: plugin failed to initialize")
		return false
	}

	r.plugins = append(r.plugins, p)
	r.byName[p.Name()] = p
	log.Info().Str("plugin", p.Name()).Str("version", p.Version()).Msg("registry: plugin loaded")
	return true
}

func initialize(p Plugin) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("initialize panicked: %v", rec)
		}
	}()
	return p.Initialize()
}

// Bind mounts every registered plugin's commands and actions on the
// mux. The transport collaborator owns rendering and routing beyond
// this point.
func (r *Registry) Bind(mux *http.ServeMux) {
	for _, p := range r.plugins {
		for _, route := range p.Commands() {
			mux.HandleFunc(route.Method+" "+route.Path, route.Handler)
			log.Debug().Str("plugin", p.Name()).Str("route", route.Method+" "+route.Path).
				Msg("registry: command bound")
		}
		for _, action := range p.Actions() {
			mux.HandleFunc("POST "+ActionPrefix+action.Name, action.Handler)
			log.Debug().Str("plugin", p.Name()).Str("action", action.Name).
				Msg("registry: action bound")
		}
	}
}

// Get returns the named plugin, or nil.
func (r *Registry) Get(name string) Plugin {
	return r.byName[name]
}

// AvailablePlugins returns the plugins the user may use: access level
// "all" always passes, "admin" only for configured admin IDs.
func (r *Registry) AvailablePlugins(userID int64) []Info {
	var out []Info
	for _, p := range r.plugins {
		switch p.AccessLevel() {
		case AccessAll:
		case AccessAdmin:
			if !r.cfg.IsAdmin(userID) {
				continue
			}
		default:
			continue
		}
		out = append(out, Info{
			Name:        p.Name(),
			Version:     p.Version(),
			DisplayName: p.DisplayName(),
			Description: p.Description(),
			AccessLevel: p.AccessLevel(),
		})
	}
	return out
}

// CollectScheduledTasks flattens every plugin's cadences, in
// registration order, for scheduler bootstrap.
func (r *Registry) CollectScheduledTasks() []scheduler.Task {
	var out []scheduler.Task
	for _, p := range r.plugins {
		out = append(out, p.ScheduledTasks()...)
	}
	return out
}

// ShutdownAll shuts every plugin down in registration order. Each
// call is individually fault-isolated: one plugin failing or
// panicking never blocks the shutdown of the rest.
func (r *Registry) ShutdownAll() {
	for _, p := range r.plugins {
		if err := shutdown(p); err != nil {
			log.Error().Str("plugin", p.Name()).Err(err).Msg("registry: plugin shutdown failed")
			continue
		}
		log.Info().Str("plugin", p.Name()).Msg("registry: plugin shut down")
	}
}

func shutdown(p Plugin) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("shutdown panicked: %v", rec)
		}
	}()
	return p.Shutdown()
}
