package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerSample(t *testing.T) {
	s, err := NewSampler()
	require.NoError(t, err)

	sample := s.Sample()
	assert.Greater(t, sample.Goroutines, 0)
	assert.False(t, sample.SampledAt.IsZero())
}
