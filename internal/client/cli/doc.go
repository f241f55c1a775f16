// Package cli provides the interactive matchdeck command-line client.
//
// It renders the candidate deck, match notices and the chat of the open
// conversation as text, and turns typed commands into engine operations:
// drags and button presses on the active card, opening a matched
// conversation, sending messages and the two-step unmatch.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// Background work (reconciliation results, inbound chat frames) is printed
// through a Console shared with the engine callbacks.
package cli
