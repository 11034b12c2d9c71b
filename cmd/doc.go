// Package cmd contains the CLI entry points for the timely backend.
package cmd
