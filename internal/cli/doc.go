// Package cli implements the instalatrack command line: one-shot commands
// built with cobra, an interactive shell with undo, and the background
// sync daemon.
package cli
