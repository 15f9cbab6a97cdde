package latencycheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThresholds(t *testing.T) {
	v, err := ParseThresholds("90, 20,")
	require.NoError(t, err)
	assert.Equal(t, []int{90, 20}, v)

	v, err = ParseThresholds("")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = ParseThresholds("90,abc")
	require.Error(t, err)
	_, err = ParseThresholds("101")
	require.Error(t, err)
}

func TestApplyThresholds(t *testing.T) {
	refs := []Reference{{Label: "a"}, {Label: "b"}, {Label: "c"}}
	ApplyThresholds(refs, []int{90, 20})
	assert.Equal(t, 90, refs[0].Threshold)
	assert.Equal(t, 20, refs[1].Threshold)
	assert.Equal(t, 20, refs[2].Threshold)

	ApplyThresholds(refs, nil)
	assert.Equal(t, 90, refs[0].Threshold)
}
