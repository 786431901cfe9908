// Package cli implements the interactive shell of the storefront engine.
//
// The shell reads one command per line, prompts for the remaining input and
// turns it into an app intent. The prompt shows who is logged in and the
// current cart total. Type "help" for the list of commands.
package cli
