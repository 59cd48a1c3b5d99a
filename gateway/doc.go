// Package gateway serves the orchestration loop as a Model Context Protocol
// server.
//
// Tools:
//
//   - run_instruction: run one instruction round in a session
//   - get_history: list a session's recorded rounds
//   - register_capability: add a capability at runtime
//   - search_capabilities: search the capability catalog
//   - describe_capability: show a capability's documentation
//   - model_query: send a raw prompt to the model, chunked when large
//
// The effective configuration is exposed as the config://toolpilot resource.
package gateway
