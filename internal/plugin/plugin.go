// Package plugin defines the capability contract feature modules
// implement and the registry that owns them.
package plugin

import (
	"net/http"

	"nsiwatch/internal/scheduler"
)

// AccessLevel controls who may see and use a plugin.
type AccessLevel string

const (
	AccessAll   AccessLevel = "all"
	AccessAdmin AccessLevel = "admin"
)

// Route is an HTTP endpoint a plugin contributes to the interactive
// surface.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Action is a named interactive action (menu buttons and the like),
// mounted under the actions prefix by the registry.
type Action struct {
	Name    string
	Handler http.HandlerFunc
}

// Info describes a plugin for menus and the plugins API.
type Info struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	DisplayName string      `json:"display_name"`
	Description string      `json:"description"`
	AccessLevel AccessLevel `json:"access_level"`
}

// Plugin is one independently shippable feature module. Instances are
// owned exclusively by the Registry for the process lifetime.
type Plugin interface {
	Name() string
	Version() string
	DisplayName() string
	Description() string
	AccessLevel() AccessLevel

	// Initialize prepares the plugin. Returning an error keeps the
	// plugin out of the registry; it must not leave goroutines behind.
	Initialize() error

	// Shutdown releases plugin resources. Called once, at process
	// shutdown, with per-plugin fault isolation.
	Shutdown() error

	// Commands and Actions are the plugin's interactive surface.
	Commands() []Route
	Actions() []Action

	// ScheduledTasks returns the plugin's cadences for the scheduler.
	ScheduledTasks() []scheduler.Task
}

// Base carries the common metadata so plugins only implement what
// they use.
type Base struct {
	PluginName    string
	PluginVersion string
	Display       string
	Desc          string
	Access        AccessLevel
}

func (b *Base) Name() string        { return b.PluginName }
func (b *Base) Version() string     { return b.PluginVersion }
func (b *Base) DisplayName() string { return b.Display }
func (b *Base) Description() string { return b.Desc }

func (b *Base) AccessLevel() AccessLevel {
	if b.Access == "" {
		return AccessAll
	}
	return b.Access
}

func (b *Base) Initialize() error { return nil }
func (b *Base) Shutdown() error   { return nil }

func (b *Base) Commands() []Route { return nil }
func (b *Base) Actions() []Action { return nil }

func (b *Base) ScheduledTasks() []scheduler.Task { return nil }
