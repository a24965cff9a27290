package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/metaforge/internal/errors"
)

func validPair() *Blueprint {
	return &Blueprint{
		Specs: []AgentSpec{
			{Name: "A", Priority: 1},
			{Name: "B", Priority: 2, Dependencies: []string{"A"}},
		},
		ExecutionOrder:       []string{"A", "B"},
		ParallelGroups:       [][]string{},
		CollaborationMatrix:  map[string][]string{"A": {"B"}, "B": {"A"}},
		CoordinationStrategy: StrategyPeerToPeer,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *Blueprint)
		wantMsg string
	}{
		{"valid", func(*Blueprint) {}, ""},
		{"self dependency", func(b *Blueprint) { b.Specs[0].Dependencies = []string{"A"} }, "depends on itself"},
		{"dangling dependency", func(b *Blueprint) { b.Specs[1].Dependencies = []string{"Ghost"} }, "unknown \"Ghost\""},
		{"duplicate name", func(b *Blueprint) { b.Specs[1].Name = "A"; b.Specs[1].Dependencies = nil }, "duplicate spec name"},
		{"order violates dependency", func(b *Blueprint) { b.ExecutionOrder = []string{"B", "A"} }, "runs before its dependency"},
		{"order misses spec", func(b *Blueprint) { b.ExecutionOrder = []string{"A"} }, "execution order has 1 entries"},
		{"group conflict", func(b *Blueprint) { b.ParallelGroups = [][]string{{"A", "B"}} }, "parallel group 0"},
		{"strategy mismatch", func(b *Blueprint) { b.CoordinationStrategy = StrategySingleAgent }, "does not fit"},
		{"empty", func(b *Blueprint) { b.Specs = nil; b.ExecutionOrder = nil }, "spec count 0"},
		{"zero priority", func(b *Blueprint) { b.Specs[0].Priority = 0 }, "priority 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp := validPair()
			tt.mutate(bp)

			err := Validate(bp)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeBlueprintInvalid, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateNil(t *testing.T) {
	assert.Error(t, Validate(nil))
}
