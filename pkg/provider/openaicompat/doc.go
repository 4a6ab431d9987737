// Package openaicompat implements the provider.Driver contract against
// OpenAI-compatible Chat Completions backends (OpenAI, vLLM, LiteLLM,
// Ollama, and friends). It is the builtin driver behind the
// "openai_compat" kind.
//
// The adapter is non-streaming: one SendMessage call maps to one POST
// /v1/chat/completions request. Transient backend failures (network
// errors, 5xx) are retried according to the configured retry budget;
// retry policy lives here, in the driver layer, never in the pipeline
// core.
package openaicompat
