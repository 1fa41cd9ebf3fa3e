// Package openai implements the ai.Embedder interface against
// OpenAI-compatible embedding APIs (OpenAI, Ollama, LocalAI, vLLM).
//
// The implementation is a thin wrapper around langchaingo's embeddings
// client; batching, pacing, and failure policy live in the ingestion
// pipeline, not here.
package openai
