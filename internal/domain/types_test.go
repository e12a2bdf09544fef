package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordingValidateRequiresDataOrPath(t *testing.T) {
	require.Error(t, Recording{}.Validate())
	require.NoError(t, Recording{Data: []int16{1}}.Validate())
	require.NoError(t, Recording{Path: "/tmp/a.flac"}.Validate())
}

func TestValidateTagsEnforcesBounds(t *testing.T) {
	require.Error(t, ValidateTags(nil))
	require.Error(t, ValidateTags([]string{"a", "b"}))
	require.NoError(t, ValidateTags([]string{"a", "b", "c"}))
	require.NoError(t, ValidateTags([]string{"a", "b", "c", "d", "e"}))
	require.Error(t, ValidateTags([]string{"a", "b", "c", "d", "e", "f"}))
}
