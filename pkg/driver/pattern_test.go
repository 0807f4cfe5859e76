package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternValidate(t *testing.T) {
	tests := []struct {
		name    string
		pattern *Pattern
		wantErr error
	}{
		{
			name:    "single node",
			pattern: Match("t", "Topic", Props{"name": "Sorting"}),
		},
		{
			name: "chain with conditions",
			pattern: Match("s", "Subject", nil).
				Out("HAS_TOPIC", "t", "Topic", nil).
				Out("HAS_QUESTION", "q", "Question", nil).
				Where("q", "year", OpGte, 2020).
				OrderBy("q", "difficulty", false).
				Limit(3),
		},
		{
			name:    "nil pattern",
			pattern: nil,
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "duplicate alias",
			pattern: Match("t", "Topic", nil).Out("HAS_QUESTION", "t", "Question", nil),
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "edge alias clashes with node",
			pattern: Match("t", "Topic", nil).Out("HAS_QUESTION", "q", "Question", nil).As("t"),
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "injected label",
			pattern: Match("t", "Topic) DETACH DELETE (x", nil),
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "injected property key",
			pattern: Match("t", "Topic", Props{"name}) RETURN 1//": "x"}),
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "unknown alias in condition",
			pattern: Match("t", "Topic", nil).Where("q", "year", OpEq, 1),
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "unknown operator",
			pattern: Match("t", "Topic", nil).Where("t", "name", Op("=~"), ".*"),
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "unknown alias in order",
			pattern: Match("t", "Topic", nil).OrderBy("x", "name", false),
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "negative limit",
			pattern: Match("t", "Topic", nil).Limit(-1),
			wantErr: ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPatternAccessors(t *testing.T) {
	p := Match("t", "Topic", nil).
		Out("HAS_QUESTION", "q", "Question", nil).
		In("ATTEMPTED", "u", "User", nil).As("r")

	require.NoError(t, p.Validate())
	assert.Equal(t, "u", p.Target())
	assert.Equal(t, "Question", p.nodeLabel("q"))
	assert.Equal(t, "", p.nodeLabel("x"))
	assert.Equal(t, 1, p.edgeIndex("r"))
	assert.Equal(t, -1, p.edgeIndex("t"))
	assert.True(t, p.edges[1].Inbound)
}

func TestVectorQueryValidate(t *testing.T) {
	valid := VectorQuery{Label: "Chunk", Property: "embedding", Vector: []float32{1}, K: 1}
	assert.NoError(t, valid.validate())

	noK := valid
	noK.K = 0
	assert.ErrorIs(t, noK.validate(), ErrInvalidPattern)

	empty := valid
	empty.Vector = nil
	assert.ErrorIs(t, empty.validate(), ErrInvalidPattern)

	badFilter := valid
	badFilter.Filter = &Reachability{Anchor: Ref("Topic", nil), EdgeType: "EXPLAINED BY"}
	assert.ErrorIs(t, badFilter.validate(), ErrInvalidIdentifier)
}
