// Package openai implements the provider adapter for OpenAI-compatible
// chat-completion endpoints (OpenAI itself, plus Ollama, vLLM and other
// servers speaking the same wire format).
package openai
