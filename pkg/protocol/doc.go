// Package protocol defines the JSON-RPC 2.0 message types and the MCP tool
// invocation subset spoken by workspace-mcp: initialize, tools/list,
// tools/call, prompts/list and prompts/get over newline-delimited frames.
package protocol
