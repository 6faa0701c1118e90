package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optometry_report/internal/common"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry[string]()

	isNew, err := r.Register("reports", "a")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = r.Register("reports", "b")
	require.NoError(t, err)
	assert.False(t, isNew)

	v, ok := r.Get("reports")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, err = r.Register("", "x")
	assert.ErrorIs(t, err, common.ErrRequiredField)
}
