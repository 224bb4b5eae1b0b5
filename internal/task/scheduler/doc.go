// Package scheduler registers triggers (interval, one-shot) and enqueues
// the matching jobs into the task engine. It never runs job code itself.
//
// Every trigger is keyed by name; registering a name again replaces the
// previous trigger, and Remove(name) cancels it.
package scheduler
