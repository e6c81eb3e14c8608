package health

import "context"

// StorePinger checks usage store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks model provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}
