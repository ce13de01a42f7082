// Package probes ships the built-in tasks the daemon can schedule out of the
// box: a heartbeat, a runtime stats sampler, and a network speedtest.
//
// Each probe is an ordinary task; nothing here is special-cased by the
// scheduler. They double as living examples of the task contract.
package probes
