package service

import (
	"testing"

	"apigateway/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendRegistry_LookupMissingBackend(t *testing.T) {
	r := NewBackendRegistry()
	_, _, _, _, err := r.Lookup("ghost")
	assert.ErrorIs(t, err, errBackendNotFound)
}

func TestBackendRegistry_RegisterAndSetDescriptorPool(t *testing.T) {
	r := NewBackendRegistry()
	backend := domain.Backend{Name: "user-svc"}
	r.Register(backend, nil, nil)

	gotBackend, _, _, gotPool, err := r.Lookup("user-svc")
	require.NoError(t, err)
	assert.Equal(t, backend, gotBackend)
	assert.Nil(t, gotPool)

	dp := &fakeDescriptorPool{}
	r.SetDescriptorPool("user-svc", dp)

	_, _, _, gotPool2, err := r.Lookup("user-svc")
	require.NoError(t, err)
	assert.Same(t, dp, gotPool2)
}

func TestBackendRegistry_SetDescriptorPoolIgnoresUnknownBackend(t *testing.T) {
	r := NewBackendRegistry()
	assert.NotPanics(t, func() {
		r.SetDescriptorPool("ghost", &fakeDescriptorPool{})
	})
}
