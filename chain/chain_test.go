package chain_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/chain"
)

// labeled builds a wrapper that prefixes the result of the inner callback with label,
// so the order of a wrapper list can be read from a single invocation.
func labeled(label string) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return callback.Func(func(ctx context.Context, args ...any) (any, error) {
			result, err := next.Invoke(ctx, args...)
			s, _ := result.(string)
			return label + s, err
		})
	}
}

// order applies ws to an empty callback and returns the labels outermost first.
func order(t *testing.T, ws []callback.Wrapper) string {
	t.Helper()

	raw := callback.Func(func(context.Context, ...any) (any, error) { return "", nil })
	cb, err := callback.Compose(raw, ws...)
	require.NoError(t, err)

	result, err := cb.Invoke(context.Background())
	require.NoError(t, err)
	return result.(string)
}

func TestChainAddRemove(t *testing.T) {
	c := chain.New()

	h1 := c.Add(labeled("a"))
	h2 := c.Add(labeled("b"))
	h3 := c.Add(labeled("c"))

	assert.False(t, h1.IsZero())
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "abc", order(t, c.Base()))

	c.Remove(h2)
	assert.Equal(t, "ac", order(t, c.Base()))

	// absent handles are ignored
	c.Remove(h2)
	c.Remove(chain.Handle{})
	assert.Equal(t, "ac", order(t, c.Base()))

	c.Remove(h1)
	c.Remove(h3)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Base())
}

func TestChainSameWrapperTwice(t *testing.T) {
	c := chain.New()
	w := labeled("x")

	h1 := c.Add(w)
	c.Add(w)
	assert.Equal(t, "xx", order(t, c.Base()))

	c.Remove(h1)
	assert.Equal(t, "x", order(t, c.Base()))
}

func TestChainBaseIsSnapshot(t *testing.T) {
	c := chain.New()
	h := c.Add(labeled("a"))

	snapshot := c.Base()
	c.Remove(h)
	c.Add(labeled("b"))

	assert.Equal(t, "a", order(t, snapshot))
	assert.Equal(t, "b", order(t, c.Base()))
}

func TestChainConcurrentMutation(t *testing.T) {
	c := chain.New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := c.Add(labeled("x"))
			_ = c.Current(context.Background())
			c.Remove(h)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, c.Len())
}

func TestCurrentAppendsScopedOverrides(t *testing.T) {
	c := chain.New()
	c.Add(labeled("base"))

	ctx, pop := chain.Push(context.Background(), labeled("1"))
	defer pop()
	ctx, pop2 := chain.Push(ctx, labeled("2"), labeled("3"))
	defer pop2()

	assert.Equal(t, "base123", order(t, c.Current(ctx)))
	assert.Equal(t, 2, chain.Depth(ctx))
}

func TestPushPop(t *testing.T) {
	outer, popOuter := chain.Push(context.Background(), labeled("o"))
	inner, popInner := chain.Push(outer, labeled("i"))

	assert.Equal(t, "oi", order(t, chain.Scoped(inner)))
	assert.Equal(t, "o", order(t, chain.Scoped(outer)))

	popInner()
	assert.Equal(t, "o", order(t, chain.Scoped(inner)), "popped frame must not be visible through escaped contexts")

	// idempotent
	popInner()
	assert.Equal(t, 1, chain.Depth(inner))

	popOuter()
	assert.Empty(t, chain.Scoped(inner))
	assert.Empty(t, chain.Scoped(context.Background()))
}

func TestPushNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated
	ctx, pop := chain.Push(nil, labeled("a"))
	defer pop()

	assert.Equal(t, "a", order(t, chain.Scoped(ctx)))
}

func TestWith(t *testing.T) {
	t.Run("visible inside nested calls only", func(t *testing.T) {
		ctx := context.Background()

		var inside, nested string
		err := chain.With(ctx, []callback.Wrapper{labeled("w")}, func(ctx context.Context) error {
			inside = order(t, chain.Scoped(ctx))
			nested = deeper(t, ctx)
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, "w", inside)
		assert.Equal(t, "w", nested)
		assert.Empty(t, chain.Scoped(ctx))
	})

	t.Run("nested scopes", func(t *testing.T) {
		var innerOrder, afterInner string
		err := chain.With(context.Background(), []callback.Wrapper{labeled("1")}, func(ctx context.Context) error {
			err := chain.With(ctx, []callback.Wrapper{labeled("2")}, func(ctx context.Context) error {
				innerOrder = order(t, chain.Scoped(ctx))
				return nil
			})
			afterInner = order(t, chain.Scoped(ctx))
			return err
		})
		require.NoError(t, err)

		assert.Equal(t, "12", innerOrder)
		assert.Equal(t, "1", afterInner)
	})

	t.Run("popped on error", func(t *testing.T) {
		errBlock := errors.New("block failed")

		var escaped context.Context
		err := chain.With(context.Background(), []callback.Wrapper{labeled("w")}, func(ctx context.Context) error {
			escaped = ctx
			return errBlock
		})

		require.ErrorIs(t, err, errBlock)
		assert.Empty(t, chain.Scoped(escaped))
	})

	t.Run("popped on panic", func(t *testing.T) {
		var escaped context.Context
		assert.PanicsWithValue(t, "boom", func() {
			_ = chain.With(context.Background(), []callback.Wrapper{labeled("w")}, func(ctx context.Context) error {
				escaped = ctx
				panic("boom")
			})
		})

		assert.Empty(t, chain.Scoped(escaped))
	})

	t.Run("not visible to concurrent contexts", func(t *testing.T) {
		root := context.Background()
		started := make(chan struct{})
		release := make(chan struct{})

		go func() {
			_ = chain.With(root, []callback.Wrapper{labeled("other")}, func(context.Context) error {
				close(started)
				<-release
				return nil
			})
		}()

		<-started
		assert.Empty(t, chain.Scoped(root))
		close(release)
	})
}

func deeper(t *testing.T, ctx context.Context) string {
	t.Helper()
	return evenDeeper(t, ctx)
}

func evenDeeper(t *testing.T, ctx context.Context) string {
	t.Helper()
	return order(t, chain.Scoped(ctx))
}

func TestWithResult(t *testing.T) {
	got, err := chain.WithResult(context.Background(), []callback.Wrapper{labeled("w")},
		func(ctx context.Context) (int, error) {
			return chain.Depth(ctx), nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestDefaultChain(t *testing.T) {
	h := chain.Add(labeled("d"))
	defer chain.Remove(h)

	assert.Same(t, chain.Default(), chain.Default())
	assert.Contains(t, order(t, chain.Current(context.Background())), "d")

	chain.Remove(h)
	assert.NotContains(t, order(t, chain.Current(context.Background())), "d")
}
