// Package simevent is the global event subsystem of a continuous-time
// multibody simulation toolkit: a registry and dispatcher that lets an
// integrator coordinate scheduled (time-driven) and triggered
// (state-condition-driven) events, invoke user report and change actions,
// and track which triggers caused which events.
//
// # Model
//
// An Event is a named occurrence class bundling report actions (pure) and
// change actions (state-mutating). A Trigger detects an event: a Timer
// produces the next scheduled trigger time, a Witness is a continuous
// function of state whose sign transitions mark trigger instants, and a
// SignalTrigger marks framework occurrences such as initialization. The
// Subsystem owns both populations, hands out dense never-reused ids, and
// exposes the predefined Initialization, TimeAdvanced, Termination and
// ExtremeValueIsolated events.
//
// # Integrator contract
//
// Per step the integrator asks for the active witnesses and timers, asks
// FindNextScheduledEventTimes for the earliest report and change times
// (ties grouped by exact float64 equality), advances time and isolates
// witness zero crossings, then hands the fired triggers to
// NoteEventOccurrence. The resolver deduplicates them into (event, causes)
// pairs; PerformEventReportActions and PerformEventChangeActions run the
// actions, and the change pass reports the lowest state stage the actions
// invalidated so the integrator knows how far to re-realize.
//
// Everything here is single-threaded by contract: the subsystem is called
// only from the integrator's thread, registries grow only between steps,
// and actions must not adopt new events or triggers.
//
// The stepper subpackage provides a minimal event-driven driver; older
// Handler/Reporter style objects plug in through the Adopt*EventHandler
// and Adopt*EventReporter adapters.
package simevent
