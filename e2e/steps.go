package e2e

import (
	"github.com/cucumber/godog"

	"vestry/e2e/steps/common"
	"vestry/e2e/steps/ratelimit"
	"vestry/e2e/steps/registry"
	"vestry/e2e/steps/vesting"
)

// RegisterSteps registers all step definitions from the modular packages.
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(sc, tc)
	registry.RegisterSteps(sc, tc)
	vesting.RegisterSteps(sc, tc)
	ratelimit.RegisterSteps(sc, tc)
}
