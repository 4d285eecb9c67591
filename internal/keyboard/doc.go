// Package keyboard keeps keyboard indicator keys and their observers in sync.
//
// A StatusSource reports the current state of every key. The Reloader polls it on an
// interval and hands each Status to the listeners registered for that key name; the
// listeners are bound weakly to their owners, so registering never keeps an owner
// alive. A Controller drives one Key toward a requested state: it runs the key's on
// or off action, re-queries, and retries up to MaxAttempts times. A newer Set on the
// same controller cancels the one in flight, which then returns without error.
//
// Service wires a reloader and one controller per key together and publishes changes
// on the event bus.
package keyboard
