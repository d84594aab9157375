package vesting

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cucumber/godog"
)

// TestContext defines what the vesting steps need from the harness.
type TestContext interface {
	Request(method, path string, body any, proofName string) error
	LastStatus() int
	ResponseField(name string) (any, error)
	PrincipalFor(name string) string
	TokenAsset() string
}

// RegisterSteps registers vesting wallet step definitions.
func RegisterSteps(sc *godog.ScenarioContext, tc TestContext) {
	steps := &vestingSteps{tc: tc}

	sc.Step(`^the vesting wallet is initialized$`, steps.walletInitialized)
	sc.Step(`^the admin creates a schedule for "([^"]*)" of (\d+) tokens vesting over (\d+) seconds starting (\d+) seconds ago$`, steps.createsScheduleStartedAgo)
	sc.Step(`^the admin created a schedule for "([^"]*)" of (\d+) tokens vesting over (\d+) seconds starting (\d+) seconds ago$`, steps.createdScheduleStartedAgo)
	sc.Step(`^the admin created a schedule for "([^"]*)" of (\d+) tokens vesting over (\d+) seconds starting (\d+) seconds from now$`, steps.createdScheduleStartingIn)
	sc.Step(`^"([^"]*)" claims$`, steps.claims)
	sc.Step(`^"([^"]*)" claims for "([^"]*)"$`, steps.claimsFor)
	sc.Step(`^anyone fetches the schedule for "([^"]*)"$`, steps.fetchSchedule)
}

type vestingSteps struct {
	tc TestContext
}

func (s *vestingSteps) walletInitialized(ctx context.Context) error {
	err := s.tc.Request(http.MethodPost, "/vesting/admin", map[string]string{
		"admin": s.tc.PrincipalFor("admin"),
		"token": s.tc.TokenAsset(),
	}, "admin")
	if err != nil {
		return err
	}
	switch s.tc.LastStatus() {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		code, err := s.tc.ResponseField("error")
		if err != nil {
			return err
		}
		if code == "already_initialized" {
			return nil
		}
	}
	return fmt.Errorf("could not initialize the wallet: status %d", s.tc.LastStatus())
}

func (s *vestingSteps) createSchedule(name string, total, duration int64, start time.Time) error {
	return s.tc.Request(http.MethodPost, "/vesting/schedules", map[string]any{
		"admin":            s.tc.PrincipalFor("admin"),
		"beneficiary":      s.tc.PrincipalFor(name),
		"total_amount":     strconv.FormatInt(total, 10),
		"start_time":       start.UTC().Format(time.RFC3339),
		"duration_seconds": duration,
	}, "admin")
}

func (s *vestingSteps) createsScheduleStartedAgo(ctx context.Context, name string, total, duration, ago int64) error {
	return s.createSchedule(name, total, duration, time.Now().Add(-time.Duration(ago)*time.Second))
}

func (s *vestingSteps) createdScheduleStartedAgo(ctx context.Context, name string, total, duration, ago int64) error {
	if err := s.createsScheduleStartedAgo(ctx, name, total, duration, ago); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("could not create schedule for %s: status %d", name, s.tc.LastStatus())
	}
	return nil
}

func (s *vestingSteps) createdScheduleStartingIn(ctx context.Context, name string, total, duration, in int64) error {
	if err := s.createSchedule(name, total, duration, time.Now().Add(time.Duration(in)*time.Second)); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("could not create schedule for %s: status %d", name, s.tc.LastStatus())
	}
	return nil
}

func (s *vestingSteps) claims(ctx context.Context, name string) error {
	return s.claimsFor(ctx, name, name)
}

func (s *vestingSteps) claimsFor(ctx context.Context, actor, beneficiary string) error {
	path := "/vesting/schedules/" + s.tc.PrincipalFor(beneficiary) + "/claims"
	return s.tc.Request(http.MethodPost, path, nil, actor)
}

func (s *vestingSteps) fetchSchedule(ctx context.Context, name string) error {
	return s.tc.Request(http.MethodGet, "/vesting/schedules/"+s.tc.PrincipalFor(name), nil, "")
}
