// Package logging configures the slog handlers used across subburn.
//
// Two formats are supported: a human-oriented console layout that prints a
// "[component] Video N (stage)" subject ahead of each message, and a JSON
// layout for log shipping. Context helpers lift job and stage annotations
// from services into structured fields so stage code never formats them by
// hand.
package logging
