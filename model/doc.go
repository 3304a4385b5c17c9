// Package model defines the provider-agnostic abstractions for interacting
// with language models.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (Groq, OpenAI, Anthropic) implement the Model interface from
// sub-packages so agents remain decoupled from vendor SDKs.
package model
