package module

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_RequireInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{name: "plain int", value: 7, want: 7},
		{name: "hcl int64", value: int64(7), want: 7},
		{name: "hcl whole float", value: 7.0, want: 7},
		{name: "fractional float", value: 7.5, wantErr: true},
		{name: "string", value: "7", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{"n": tc.value}
			got, err := cfg.RequireInt("n")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := Config{}.RequireInt("absent")
	require.Error(t, err)
}

func TestConfig_RequireIntSlice(t *testing.T) {
	t.Parallel()

	got, err := Config{"shape": []any{int64(2), 3.0}}.RequireIntSlice("shape")
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, got)

	got, err = Config{"shape": []int{4, 5}}.RequireIntSlice("shape")
	require.NoError(t, err)
	require.Equal(t, []int{4, 5}, got)

	_, err = Config{"shape": []any{"x"}}.RequireIntSlice("shape")
	require.Error(t, err)
}

func TestConfig_OptionalAccessors(t *testing.T) {
	t.Parallel()

	cfg := Config{"a": 1, "b": true, "c": 2.5, "d": "hello"}
	require.Equal(t, 1, cfg.Int("a", 9))
	require.Equal(t, 9, cfg.Int("missing", 9))
	require.True(t, cfg.Bool("b", false))
	require.Equal(t, 2.5, cfg.Float("c", 0))
	require.Equal(t, "hello", cfg.String("d", ""))
	require.Equal(t, "def", cfg.String("missing", "def"))
}

func TestNewBase_InputOverrides(t *testing.T) {
	t.Parallel()

	defaults := map[string]string{
		"input": "current_dataloader:sample:speaker_experiences",
		"mode":  "signals:mode",
	}
	overrides := map[string]string{
		"input": "modules:flattener:output",
	}

	b := NewBase("m1", "Test", nil, defaults, overrides)
	require.Equal(t, "m1", b.ID())
	require.Equal(t, "Test", b.Type())
	require.Equal(t, map[string]string{
		"input": "modules:flattener:output",
		"mode":  "signals:mode",
	}, b.InputStreams())

	require.Equal(t, "modules:m1:output", b.OutputPath("output"))
	require.Equal(t, "modules:m1:ref", RefPath("m1"))
}
