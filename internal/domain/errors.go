package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument signals malformed or missing input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized signals a missing or rejected credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited signals a rate limit hit on an upstream provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrBoardUnavailable signals that the discussion board API could not be reached.
	ErrBoardUnavailable = errors.New("discussion board unavailable")
)
