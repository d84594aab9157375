package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext defines what the registry steps need from the harness.
type TestContext interface {
	Request(method, path string, body any, proofName string) error
	LastStatus() int
	ResponseField(name string) (any, error)
	PrincipalFor(name string) string
}

// RegisterSteps registers contributor registry step definitions.
func RegisterSteps(sc *godog.ScenarioContext, tc TestContext) {
	steps := &registrySteps{tc: tc}

	sc.Step(`^the contributor registry is initialized$`, steps.registryInitialized)
	sc.Step(`^"([^"]*)" registers with GitHub handle "([^"]*)"$`, steps.registers)
	sc.Step(`^"([^"]*)" is registered with GitHub handle "([^"]*)"$`, steps.isRegistered)
	sc.Step(`^"([^"]*)" tries to register "([^"]*)" with handle "([^"]*)"$`, steps.triesToRegisterOther)
	sc.Step(`^the admin sets "([^"]*)" reputation to (\d+)$`, steps.adminSetsReputation)
	sc.Step(`^"([^"]*)" sets "([^"]*)" reputation to (\d+)$`, steps.setsReputation)
	sc.Step(`^anyone fetches the contributor "([^"]*)"$`, steps.fetchContributor)
	sc.Step(`^anyone fetches the registry admin$`, steps.fetchAdmin)
}

type registrySteps struct {
	tc TestContext
}

// registryInitialized initializes once and tolerates a registry an earlier
// scenario or run already initialized with the pinned admin.
func (s *registrySteps) registryInitialized(ctx context.Context) error {
	err := s.tc.Request(http.MethodPost, "/registry/admin",
		map[string]string{"admin": s.tc.PrincipalFor("admin")}, "admin")
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
	return fmt.Errorf("could not initialize the registry: status %d", s.tc.LastStatus())
}

func (s *registrySteps) registers(ctx context.Context, name, handle string) error {
	return s.tc.Request(http.MethodPost, "/registry/contributors", map[string]string{
		"address":       s.tc.PrincipalFor(name),
		"github_handle": handle,
	}, name)
}

func (s *registrySteps) isRegistered(ctx context.Context, name, handle string) error {
	if err := s.registers(ctx, name, handle); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("could not register %s: status %d", name, s.tc.LastStatus())
	}
	return nil
}

func (s *registrySteps) triesToRegisterOther(ctx context.Context, actor, victim, handle string) error {
	return s.tc.Request(http.MethodPost, "/registry/contributors", map[string]string{
		"address":       s.tc.PrincipalFor(victim),
		"github_handle": handle,
	}, actor)
}

func (s *registrySteps) adminSetsReputation(ctx context.Context, name string, score int) error {
	return s.setsReputation(ctx, "admin", name, score)
}

func (s *registrySteps) setsReputation(ctx context.Context, actor, name string, score int) error {
	path := "/registry/contributors/" + s.tc.PrincipalFor(name) + "/reputation"
	return s.tc.Request(http.MethodPut, path, map[string]any{
		"admin": s.tc.PrincipalFor(actor),
		"score": score,
	}, actor)
}

func (s *registrySteps) fetchContributor(ctx context.Context, name string) error {
	return s.tc.Request(http.MethodGet, "/registry/contributors/"+s.tc.PrincipalFor(name), nil, "")
}

func (s *registrySteps) fetchAdmin(ctx context.Context) error {
	return s.tc.Request(http.MethodGet, "/registry/admin", nil, "")
}
