// Package membership implements the weighted membership registry core.
//
// A Registry holds one admin, an insertion-ordered list of uniquely
// addressed members and the running sum of their weights. It performs no
// I/O: every mutation takes the caller address from the host, returns the
// events it caused, and either applies completely or leaves the registry
// untouched.
//
// Notifying wraps a Registry behind interfaces.MembershipRegistry and hands
// the events of successful mutations to a Notifier instead of returning them.
package membership
