package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestMissingFlagErrorsNameTheFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"size without entry", []string{"size"}, "--entry is required"},
		{"size without stop", []string{"size", "--entry", "100"}, "--stop is required"},
		{"validate without symbol", []string{"validate"}, "--symbol is required"},
		{"targets without prices", []string{"targets"}, "--entry and --stop are required"},
		{"submit without symbol", []string{"submit"}, "--symbol is required"},
		{"submit without shares", []string{"submit", "--symbol", "AAPL"}, "--shares is required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	assert.NoError(t, execute(t, "version"))
}
