// Package statehooks generalizes original_source's single
// otHardMacStateChangeCallback fan-out (which hardwired two calls,
// keyChangeCallback then coordChangeCallback) into a small ordered registry
// of named hooks, modeled on the teacher's modules.go RegisterModule/
// hookModule registry. Unlike the teacher's registry, dispatch here is a
// plain ordered function call rather than reflection: every hook sees the
// same stack.StateChangeFlags argument, so there is no per-module channel
// type for reflection to reconstruct.
package statehooks

import "github.com/Cascoda/ca821x-posix-thread/stack"

// Hook reacts to a stack state-change trigger.
type Hook func(flags stack.StateChangeFlags)

// entry is one named, ordered registration.
type entry struct {
	name string
	hook Hook
}

// Registry holds an ordered list of hooks, invoked in registration order on
// every Fire call. Order matters: the key/device table synchronizer must
// run before the coordinator role-change hook, per spec §9 supplement.
type Registry struct {
	hooks []entry
}

// Register appends hook under name. Registering the same name twice is
// permitted and simply calls both; callers are expected to register each
// hook once at startup.
func (r *Registry) Register(name string, hook Hook) {
	r.hooks = append(r.hooks, entry{name: name, hook: hook})
}

// Fire invokes every registered hook, in registration order, with flags.
func (r *Registry) Fire(flags stack.StateChangeFlags) {
	for _, e := range r.hooks {
		e.hook(flags)
	}
}

// Names returns the registration order, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, len(r.hooks))
	for i, e := range r.hooks {
		out[i] = e.name
	}
	return out
}
