// Package llm provides the single-method transport every CIR role calls
// through: Generate(role, prompt, temperature). It hides retry, pacing,
// and provider-specific request shaping behind one interface so the
// Planner/Executor/Critic/Mediator packages never see an HTTP client.
package llm

import (
	"context"
)

// Role identifies which CIR component is making the call. It selects the
// canonical temperature and the system preamble a request is built with.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleExecutor Role = "executor"
	RoleCritic   Role = "critic"
	RoleMediator Role = "mediator"
)

// CanonicalTemperature returns the fixed temperature spec.md §6 assigns to
// each role. The Mediator never actually calls the LLM (it is a pure
// function per spec.md §9) but the constant is kept here since it is part
// of the documented external interface.
func CanonicalTemperature(role Role) float64 {
	switch role {
	case RolePlanner:
		return 0.2
	case RoleExecutor:
		return 0.1
	case RoleCritic:
		return 0.4
	case RoleMediator:
		return 0.0
	default:
		return 0.3
	}
}

// systemPreamble returns the role-specific instruction prefixed to every
// request, establishing what the model is being asked to act as.
func systemPreamble(role Role) string {
	switch role {
	case RolePlanner:
		return "You are the planning component of an automated repair system. Given a goal and the current repair phase, produce an ordered list of concrete steps."
	case RoleExecutor:
		return "You are the execution component of an automated repair system. Given a task and the tools available to you, decide which tools to call and with what arguments."
	case RoleCritic:
		return "You are the critique component of an automated repair system. Given the outcome of an execution step, assess its risk and quality."
	default:
		return "You are a component of an automated repair system."
	}
}

// Client is the transport every role calls through.
type Client interface {
	// Generate sends prompt to the model under the given role and
	// temperature and returns its raw text response.
	Generate(ctx context.Context, role Role, prompt string, temperature float64) (string, error)
}
