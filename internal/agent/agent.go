// Package agent models the external generative capability that turns a pet
// photo into a professional avatar identity. The pipeline only depends on the
// Invoker interface; the OpenAI implementation is one concrete agent.
package agent

import (
	"context"

	"petavatar/internal/domain"
)

// Image is the source material handed to the agent.
type Image struct {
	Data        []byte
	ContentType string
}

// Result is everything a successful invocation produces: the structured
// identity/analysis payload plus the rendered avatar image.
type Result struct {
	Payload   domain.ResultPayload
	AvatarPNG []byte
}

// Invoker is the single abstract operation over the agent. Failures surface
// as DependencyError; the worker records them on the job rather than
// retrying.
type Invoker interface {
	Invoke(ctx context.Context, img Image) (*Result, error)
}
