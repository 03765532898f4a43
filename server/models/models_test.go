package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func createTestProfile(t *testing.T, name string) *Profile {
	t.Helper()

	profile := &Profile{FullName: name, Mobile: "+919800000000"}
	require.Nil(t, CreateProfile(context.Background(), profile, ""))
	return profile
}

func setActivationCounter(t *testing.T, value int) {
	t.Helper()

	require.Nil(t, SetActivationCount(value))
}
