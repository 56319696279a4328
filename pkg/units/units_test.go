package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefault(t *testing.T) {
	require.NoError(t, Validate(Default))

	eu, ok := Default.First(KindEncodingUnit)
	require.True(t, ok)
	assert.Equal(t, uint8(5), eu.ID)
	assert.Equal(t, uint8(3), eu.SourceID)

	ot, ok := Default.Find(OutputTerminalID)
	require.True(t, ok)
	assert.Equal(t, KindOutputTerminal, ot.Kind)
	assert.Equal(t, uint8(5), ot.SourceID)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		graph Graph
		err   error
	}{
		{
			name: "forward source",
			graph: Graph{
				{ID: 1, Kind: KindCameraTerminal},
				{ID: 4, Kind: KindOutputTerminal, SourceID: 5},
				{ID: 5, Kind: KindEncodingUnit, SourceID: 1},
			},
			err: ErrDanglingSource,
		},
		{
			name: "duplicate",
			graph: Graph{
				{ID: 1, Kind: KindCameraTerminal},
				{ID: 1, Kind: KindOutputTerminal, SourceID: 1},
			},
			err: ErrDuplicateID,
		},
		{
			name:  "zero id",
			graph: Graph{{ID: 0, Kind: KindCameraTerminal}},
			err:   ErrZeroID,
		},
		{
			name:  "no output terminal",
			graph: Graph{{ID: 1, Kind: KindCameraTerminal}},
			err:   ErrMissingTerminal,
		},
		{
			name:  "unknown kind",
			graph: Graph{{ID: 1, Kind: Kind(42)}},
			err:   ErrUnknownKind,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tc.graph), tc.err)
		})
	}
}
