package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/streams"
	"github.com/vk/refgymgo/internal/testutil"
)

func register(h *streams.Handler, mods ...module.Module) {
	for _, m := range mods {
		h.Update(module.RefPath(m.ID()), m)
	}
}

func TestServe_LaterModuleReadsEarlierOutput(t *testing.T) {
	t.Parallel()
	h := streams.New()

	producer := testutil.NewScripted("producer", nil,
		func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"value": 21}, nil
		})
	doubler := testutil.NewScripted("doubler",
		map[string]string{"in": "modules:producer:value"},
		func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			n := inputs["in"].(int)
			return map[string]any{"value": n * 2}, nil
		})
	register(h, producer, doubler)

	p := Pipeline{ID: "chain", ModuleIDs: []string{"producer", "doubler"}}
	require.NoError(t, p.Serve(context.Background(), h))
	require.Equal(t, 42, h.Get("modules:doubler:value"))
}

func TestServe_OrderMatters(t *testing.T) {
	t.Parallel()
	h := streams.New()

	producer := testutil.NewScripted("producer", nil,
		func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"value": 1}, nil
		})
	reader := testutil.NewScripted("reader",
		map[string]string{"in": "modules:producer:value"}, nil)
	register(h, producer, reader)

	// The reader runs before the producer, so its declared input resolves
	// to the absent sentinel on the first pass.
	p := Pipeline{ID: "reversed", ModuleIDs: []string{"reader", "producer"}}
	require.NoError(t, p.Serve(context.Background(), h))
	require.Nil(t, reader.Received(0)["in"])

	// On the next pass the producer's output from pass one is visible.
	require.NoError(t, p.Serve(context.Background(), h))
	require.Equal(t, 1, reader.Received(1)["in"])
}

func TestServe_SideChannelOutputs(t *testing.T) {
	t.Parallel()
	h := streams.New()

	scorer := testutil.NewScripted("scorer", nil,
		func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{
				"accuracy":                 75.0,
				"losses_dict:scorer:loss":  0.25,
				"logs_dict:train/accuracy": 75.0,
			}, nil
		})
	register(h, scorer)

	p := Pipeline{ID: "game", ModuleIDs: []string{"scorer"}}
	require.NoError(t, p.Serve(context.Background(), h))
	require.NoError(t, p.Serve(context.Background(), h))

	// Plain outputs land in the module namespace and overwrite.
	require.Equal(t, 75.0, h.Get("modules:scorer:accuracy"))

	// Separator-bearing outputs are absolute paths and accumulate.
	require.Equal(t, []any{0.25, 0.25}, h.Get("losses_dict:scorer:loss"))
	require.Equal(t, []any{75.0, 75.0}, h.Get("logs_dict:train/accuracy"))
}

func TestServe_UnregisteredModuleFails(t *testing.T) {
	t.Parallel()
	h := streams.New()

	p := Pipeline{ID: "broken", ModuleIDs: []string{"ghost"}}
	err := p.Serve(context.Background(), h)
	require.Error(t, err)
	require.Contains(t, err.Error(), `module "ghost"`)
}

func TestServe_ComputeErrorAborts(t *testing.T) {
	t.Parallel()
	h := streams.New()

	failing := testutil.NewScripted("failing", nil,
		func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("bad batch")
		})
	after := testutil.NewScripted("after", nil, nil)
	register(h, failing, after)

	p := Pipeline{ID: "aborts", ModuleIDs: []string{"failing", "after"}}
	err := p.Serve(context.Background(), h)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad batch")
	require.Zero(t, after.Calls(), "modules after a failure must not run")
}
