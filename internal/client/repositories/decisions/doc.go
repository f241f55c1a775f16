// Package decisions persists the local journal of committed decisions and
// their reconciliation outcome, so decided candidates stay hidden across
// restarts.
package decisions
