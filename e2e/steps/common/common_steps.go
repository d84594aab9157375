package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext covers what the generic assertion steps need from the harness.
type TestContext interface {
	LastStatus() int
	ResponseField(name string) (any, error)
}

// RegisterSteps registers response assertions shared by every feature.
func RegisterSteps(sc *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	sc.Step(`^the response status is (\d+)$`, steps.responseStatusIs)
	sc.Step(`^the response field "([^"]*)" is "([^"]*)"$`, steps.responseFieldIs)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) responseStatusIs(ctx context.Context, expected int) error {
	if got := s.tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

// responseFieldIs compares on the string rendering so numeric JSON fields can
// be asserted without caring about float decoding.
func (s *commonSteps) responseFieldIs(ctx context.Context, field, expected string) error {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := render(value); got != expected {
		return fmt.Errorf("expected field %q to be %q, got %q", field, expected, got)
	}
	return nil
}

func render(value any) string {
	if f, ok := value.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", value)
}
