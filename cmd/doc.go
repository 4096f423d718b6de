// Package cmd implements the command-line interface for apptscheduler.
//
// This package provides the following commands:
//   - serve: Run the HTTP scheduling API, its MCP endpoint and the metrics server
//   - slots: Print free slots once as JSON
//   - auth url, auth login: Obtain and store the Google OAuth token
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
