package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalTemperature(t *testing.T) {
	assert.Equal(t, 0.2, CanonicalTemperature(RolePlanner))
	assert.Equal(t, 0.1, CanonicalTemperature(RoleExecutor))
	assert.Equal(t, 0.4, CanonicalTemperature(RoleCritic))
	assert.Equal(t, 0.0, CanonicalTemperature(RoleMediator))
	assert.Equal(t, 0.3, CanonicalTemperature(Role("unknown")))
}

func TestSystemPreamble_NonEmptyPerRole(t *testing.T) {
	for _, role := range []Role{RolePlanner, RoleExecutor, RoleCritic, RoleMediator} {
		assert.NotEmpty(t, systemPreamble(role))
	}
}
