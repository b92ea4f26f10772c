package preprocess

import (
	"testing"

	"github.com/ltentrup-style/qbfcircuit/pkg/circuit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenMergesSingleUseSameTypeGate(t *testing.T) {
	c := circuit.New()
	s := c.TopScope()
	x := c.AddVariable(s)
	y := c.AddVariable(s)
	z := c.AddVariable(s)

	inner := c.AddGate(circuit.GateAnd)
	c.AddGateInput(inner, circuit.Literal(x))
	c.AddGateInput(inner, circuit.Literal(y))

	outer := c.AddGate(circuit.GateAnd)
	c.AddGateInput(outer, circuit.Literal(inner))
	c.AddGateInput(outer, circuit.Literal(z))
	c.SetOutput(circuit.Literal(outer))

	require.NoError(t, c.Reencode())

	changed := Flatten(c)
	assert.True(t, changed)

	require.NoError(t, c.Reencode())
	out, ok := c.Output()
	require.True(t, ok)
	root := c.Node(circuit.VarOf(out))
	assert.Len(t, root.Inputs(), 3)
}

func TestFlattenLeavesSharedGateAlone(t *testing.T) {
	c := circuit.New()
	s := c.TopScope()
	x := c.AddVariable(s)
	y := c.AddVariable(s)

	shared := c.AddGate(circuit.GateAnd)
	c.AddGateInput(shared, circuit.Literal(x))
	c.AddGateInput(shared, circuit.Literal(y))

	outer := c.AddGate(circuit.GateAnd)
	c.AddGateInput(outer, circuit.Literal(shared))

	other := c.AddGate(circuit.GateOr)
	c.AddGateInput(other, circuit.Literal(shared))
	c.AddGateInput(other, circuit.Literal(outer))
	c.SetOutput(circuit.Literal(other))

	require.NoError(t, c.Reencode())
	assert.False(t, Flatten(c))
}
