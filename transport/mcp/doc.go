// Package mcp exposes songboard's playlist operations as MCP tools. It is a
// thin client: every tool call is proxied to the REST API, so the MCP
// surface stays in lockstep with HTTP behavior (including the broadcast
// after each mutation) without duplicating any logic.
package mcp
