package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext defines what the rate limit steps need from the harness.
type TestContext interface {
	ResponseHeader(name string) string
}

// RegisterSteps registers rate limiting step definitions. The suite only
// inspects the advertised budget; exhausting it would starve the scenarios
// that share the client's window.
func RegisterSteps(sc *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	sc.Step(`^the response includes rate limit headers$`, steps.responseIncludesHeaders)
	sc.Step(`^the remaining budget is below the limit$`, steps.remainingBelowLimit)
}

type ratelimitSteps struct {
	tc TestContext
}

func (s *ratelimitSteps) responseIncludesHeaders(ctx context.Context) error {
	for _, name := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if s.tc.ResponseHeader(name) == "" {
			return fmt.Errorf("response is missing header %s", name)
		}
	}
	return nil
}

func (s *ratelimitSteps) remainingBelowLimit(ctx context.Context) error {
	limit, err := strconv.Atoi(s.tc.ResponseHeader("X-RateLimit-Limit"))
	if err != nil {
		return fmt.Errorf("X-RateLimit-Limit is not a number: %w", err)
	}
	remaining, err := strconv.Atoi(s.tc.ResponseHeader("X-RateLimit-Remaining"))
	if err != nil {
		return fmt.Errorf("X-RateLimit-Remaining is not a number: %w", err)
	}
	if remaining >= limit {
		return fmt.Errorf("expected remaining %d below limit %d", remaining, limit)
	}
	return nil
}
