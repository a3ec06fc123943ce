package armory_test

import (
	"testing"

	"github.com/argus-labs/armory/pkg/armory"
	"github.com/argus-labs/armory/pkg/armory/authority"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant_Env(t *testing.T) {
	t.Setenv("ARMORY_ROLE", "client")
	t.Setenv("ARMORY_TICK_RATE", "30")

	p, err := armory.NewParticipant(armory.Options{})
	require.NoError(t, err)
	assert.Equal(t, authority.RoleClient, p.Role())

	// Explicit options win over the environment.
	p, err = armory.NewParticipant(armory.Options{Role: authority.RoleServer})
	require.NoError(t, err)
	assert.Equal(t, authority.RoleServer, p.Role())
	assert.NotEqual(t, uuid.Nil, p.ID())
}

func TestNewParticipant_EnvDefaults(t *testing.T) {
	p, err := armory.NewParticipant(armory.Options{})
	require.NoError(t, err)
	assert.Equal(t, authority.RoleStandalone, p.Role())
}

func TestNewParticipant_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		opts armory.Options
	}{
		{name: "invalid env role", env: map[string]string{"ARMORY_ROLE": "observer"}},
		{name: "invalid env tick rate", env: map[string]string{"ARMORY_TICK_RATE": "-1"}},
		{name: "negative env aim distance", env: map[string]string{"ARMORY_MIN_AIM_DISTANCE": "-5"}},
		{name: "negative tick rate", opts: armory.Options{TickRate: -10}},
		{name: "negative muzzle offset", opts: armory.Options{MuzzleOffset: -1}},
		{name: "unknown role", opts: armory.Options{Role: authority.Role(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := armory.NewParticipant(tt.opts)
			require.Error(t, err)
		})
	}
}
