// Package common holds helpers shared by the MCP tool packages: argument
// accessors and the instrumentation wrapper every tool handler runs through.
package common
