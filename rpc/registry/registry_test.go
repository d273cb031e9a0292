package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownNames(t *testing.T) {
	for _, name := range Serializers {
		s, err := NewSerializer(name)
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}
	for _, name := range Transports {
		c, err := NewClientTransport(name)
		require.NoError(t, err, name)
		assert.NotNil(t, c)

		s, err := NewServerTransport(name)
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}

	// names are case insensitive
	_, err := NewSerializer("JSON")
	assert.NoError(t, err)
}

func TestUnknownNames(t *testing.T) {
	_, err := NewSerializer("xml")
	assert.ErrorContains(t, err, "invalid serializer")

	_, err = NewClientTransport("grpc")
	assert.ErrorContains(t, err, "invalid transport")

	_, err = NewServerTransport("")
	assert.ErrorContains(t, err, "invalid transport")
}
