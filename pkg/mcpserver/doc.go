// Package mcpserver exposes fieldprobe as a Model Context Protocol (MCP)
// server, so an assistant can browse the payload catalog, ask how a field
// would be judged, and probe a page.
//
// # Tools
//
//   - list_payloads:  the payload catalog, optionally for one category
//   - classify_field: the context derived from a field's attributes and
//     the verdict each payload would get if the page accepted it unchanged
//   - probe_page:     a full test run against inline HTML or a URL
//
// Only the stdio transport is served.
//
// # Usage
//
//	srv := mcpserver.New(&mcpserver.Config{Open: pages.Open})
//	err := srv.RunStdio(ctx)
package mcpserver
