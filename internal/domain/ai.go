package domain

import "context"

// AIClient is the completion handle in the shared skill context.
// Skills treat it as a pure question-in, answer-out collaborator.
type AIClient interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
	Healthy(ctx context.Context) error
}
