// Package llm provides language model clients used by the chatbot to
// generate free-form replies. It supports OpenAI-compatible chat completion
// endpoints (OpenRouter by default) and Anthropic, with rate limiting.
package llm
