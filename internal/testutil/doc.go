// Package testutil provides deterministic fakes shared by loctrack tests:
// a manual clock and ticker, a scripted position source, and a blob
// backend whose writes can be held open.
package testutil
