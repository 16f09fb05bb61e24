package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/state"
)

func TestIsolate_InvalidLensReturnsReceiver(t *testing.T) {
	root := state.New(nested())

	tests := []struct {
		name string
		lens state.Lens
	}{
		{name: "nil lens", lens: nil},
		{name: "empty custom", lens: state.Custom{}},
		{name: "custom without getter", lens: state.Custom{Set: func(*draft.Draft, any) error { return nil }}},
		{name: "empty key", lens: state.Key("")},
		{name: "blank key", lens: state.Key("  ")},
		{name: "negative index", lens: state.Index(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, root, root.Isolate(tt.lens))
		})
	}
}

func TestIsolate_Value(t *testing.T) {
	base := nested()
	root := state.New(base)
	foo := root.Isolate(state.Key("foo"))
	bar := foo.Isolate(state.Key("bar"))

	assert.Same(t, root, foo.Source())
	assert.Same(t, foo, bar.Source())
	assert.True(t, draft.Identical(base["foo"], foo.Value()))
	assert.Equal(t, map[string]any{"a": 1}, bar.Value())
	assert.Nil(t, root.Isolate(state.Key("missing")).Value())

	_, err := root.Update(func(d *draft.Draft) error {
		d.At("foo", "bar").Set("a", 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 2}, bar.Value(), "derived values are never cached")
}

func TestIsolate_NestedUpdate(t *testing.T) {
	base := nested()
	root := state.New(base)
	bar := root.Isolate(state.Key("foo")).Isolate(state.Key("bar"))

	res, err := bar.Update(func(d *draft.Draft) error {
		d.Set("a", 4)
		return nil
	})
	require.NoError(t, err)

	next := root.Value().(map[string]any)
	assert.Equal(t, 4, next["foo"].(map[string]any)["bar"].(map[string]any)["a"])
	assert.True(t, draft.Identical(base["baz"], next["baz"]), "sibling must keep identity")
	assert.Equal(t, map[string]any{"a": 4}, res.Value)
	assert.Equal(t, 1, base["foo"].(map[string]any)["bar"].(map[string]any)["a"], "committed values are immutable")
}

func TestIsolate_SubscriptionsRegisterOnRoot(t *testing.T) {
	root := state.New(nested())
	foo := root.Isolate(state.Key("foo"))
	bar := foo.Isolate(state.Key("bar"))

	s1 := foo.Subscribe(&recorder{})
	s2 := bar.Subscribe(&recorder{})

	assert.Equal(t, 2, root.SubscriberCount())
	assert.Zero(t, foo.SubscriberCount())
	assert.Zero(t, bar.SubscriberCount())

	s2.Unsubscribe()
	s2.Unsubscribe()
	assert.Equal(t, 1, root.SubscriberCount())
	s1.Unsubscribe()
	assert.Zero(t, root.SubscriberCount())
}

func TestIsolate_SiblingUpdateSuppressed(t *testing.T) {
	root := state.New(nested())
	foo := root.Isolate(state.Key("foo"))
	baz := root.Isolate(state.Key("baz"))

	var bazSeen, fooSeen recorder
	baz.Subscribe(&bazSeen)
	foo.Subscribe(&fooSeen)

	_, err := foo.Isolate(state.Key("bar")).Update(func(d *draft.Draft) error {
		d.Set("a", 5)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, bazSeen.values, 1, "sibling subscriber only sees its initial value")
	require.Len(t, fooSeen.values, 2)
	assert.Equal(t, state.Change{}, fooSeen.changes[1])
}

func TestIsolate_OneNotificationPerLevel(t *testing.T) {
	root := state.New(nested())
	foo := root.Isolate(state.Key("foo"))
	bar := foo.Isolate(state.Key("bar"))

	var rootSeen, fooSeen, barSeen recorder
	root.Subscribe(&rootSeen)
	foo.Subscribe(&fooSeen)
	bar.Subscribe(&barSeen)

	_, err := bar.Update(func(d *draft.Draft) error {
		d.Set("a", 6)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, rootSeen.values, 2)
	assert.Len(t, fooSeen.values, 2)
	assert.Len(t, barSeen.values, 2)
	assert.Equal(t, map[string]any{"a": 6}, barSeen.last())
}

func TestIsolate_NoEmitForAbsentSlice(t *testing.T) {
	root := state.New(map[string]any{})
	child := root.Isolate(state.Key("later"))

	var r recorder
	child.Subscribe(&r)
	assert.Empty(t, r.values)

	_, err := child.Update(func(d *draft.Draft) error {
		d.Set("x", 1)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, r.values, 1)
	assert.Equal(t, map[string]any{"x": 1}, r.values[0])
	assert.Equal(t, map[string]any{"later": map[string]any{"x": 1}}, root.Value())
}

func TestIsolate_ShallowEqualSuppression(t *testing.T) {
	keep := map[string]any{"k": 1}
	root := state.New(map[string]any{"view": map[string]any{"keep": keep}})

	// rebuilds its projection on every read; members stay identical
	view := root.Isolate(state.Custom{
		Name: "copy",
		Get: func(p any) any {
			v, _ := p.(map[string]any)["view"].(map[string]any)
			out := make(map[string]any, len(v))
			for k, m := range v {
				out[k] = m
			}
			return out
		},
	})

	var r recorder
	view.Subscribe(&r)

	_, err := root.Update(func(d *draft.Draft) error {
		d.Set("other", true)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, r.values, 1)

	_, err = root.Update(func(d *draft.Draft) error {
		d.At("view").Set("keep", "changed")
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, r.values, 2)
}

func TestIsolate_IndependentPrevPerSubscription(t *testing.T) {
	root := state.New(map[string]any{"a": 1})
	a := root.Isolate(state.Key("a"))

	var first recorder
	a.Subscribe(&first)

	_, err := root.Update(func(d *draft.Draft) error {
		d.Set("a", 2)
		return nil
	})
	require.NoError(t, err)

	var second recorder
	a.Subscribe(&second)

	_, err = root.Update(func(d *draft.Draft) error {
		d.Set("a", 3)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []any{1, 2, 3}, first.values)
	assert.Equal(t, []any{2, 3}, second.values)
}

func TestIsolate_Index(t *testing.T) {
	root := state.New(map[string]any{"items": []any{"a", "b"}})
	first := root.Isolate(state.Key("items")).Isolate(state.Index(0))

	assert.Equal(t, "a", first.Value())

	_, err := first.Update(func(d *draft.Draft) error {
		d.Replace("z")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"items": []any{"z", "b"}}, root.Value())

	assert.Nil(t, root.Isolate(state.Key("items")).Isolate(state.Index(5)).Value())
}

func TestIsolate_IndexOnAbsentParent(t *testing.T) {
	root := state.New(map[string]any{})

	_, err := root.Isolate(state.Key("list")).Isolate(state.Index(0)).Update(func(d *draft.Draft) error {
		d.Replace("x")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"list": []any{"x"}}, root.Value())

	_, err = root.Isolate(state.Key("other")).Isolate(state.Index(2)).Update(func(d *draft.Draft) error {
		d.Replace("y")
		return nil
	})
	assert.ErrorIs(t, err, draft.ErrIndexOutOfRange)
	assert.Equal(t, map[string]any{"list": []any{"x"}}, root.Value())
}

func TestIsolate_LeafCounter(t *testing.T) {
	root := state.New(map[string]any{"count": 1})
	count := root.Isolate(state.Key("count"))

	res, err := count.Update(func(d *draft.Draft) error {
		d.Replace(d.Value().(int) + 1)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Value)
	assert.Equal(t, 2, count.Value())
}

func TestIsolate_PatchesCopiedAtDerivation(t *testing.T) {
	root := state.Create(nested())
	bar := root.Isolate(state.Key("foo")).Isolate(state.Key("bar"))
	assert.True(t, bar.PatchesEnabled())

	var rootChange state.Change
	root.RegisterMiddleware(state.Middleware(func(c state.Change, _ any) { rootChange = c }))

	res, err := bar.Update(func(d *draft.Draft) error {
		d.Set("a", 4)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []draft.Edit{{Path: draft.Path{"a"}, Op: draft.OpReplace, Value: 4}}, res.Edits)
	assert.Equal(t, []draft.Edit{{Path: draft.Path{"a"}, Op: draft.OpReplace, Value: 1}}, res.Inverse)

	require.Len(t, rootChange.Edits, 1)
	assert.Equal(t, draft.Path{"foo"}, rootChange.Edits[0].Path)

	prev, err := draft.Apply(root.Value(), rootChange.Inverse)
	require.NoError(t, err)
	assert.Equal(t, nested(), prev)

	late := state.New(nested())
	derived := late.Isolate(state.Key("foo"))
	late.EnablePatches()
	assert.False(t, derived.PatchesEnabled())
}

func TestCustomLens_Set(t *testing.T) {
	root := state.New(nested())
	bar := root.Isolate(state.Custom{
		Name: "foo.bar",
		Get: func(p any) any {
			foo, _ := p.(map[string]any)["foo"].(map[string]any)
			return foo["bar"]
		},
		Set: func(d *draft.Draft, v any) error {
			d.At("foo").Set("bar", v)
			return nil
		},
	})

	_, err := bar.Update(func(d *draft.Draft) error {
		d.Set("a", 7)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 7}, root.Value().(map[string]any)["foo"].(map[string]any)["bar"])
}

func TestCustomLens_ReadOnly(t *testing.T) {
	base := nested()
	root := state.New(base)
	ro := root.Isolate(state.Custom{Get: func(p any) any { return p.(map[string]any)["baz"] }})

	assert.Equal(t, map[string]any{"b": 2}, ro.Value())

	_, err := ro.Update(func(d *draft.Draft) error {
		d.Set("b", 3)
		return nil
	})
	assert.ErrorIs(t, err, state.ErrReadOnlyLens)
	assert.True(t, draft.Identical(base, root.Value()))
}

func focusFoo() state.Custom {
	return state.Custom{
		Name:  "focus",
		Get:   func(p any) any { return p.(map[string]any)["foo"] },
		Focus: func(d *draft.Draft) *draft.Draft { return d.At("foo") },
	}
}

func TestCustomLens_FocusReplaysEdits(t *testing.T) {
	root := state.Create(map[string]any{"foo": map[string]any{"a": 1}})
	var rootChange state.Change
	root.RegisterMiddleware(state.Middleware(func(c state.Change, _ any) { rootChange = c }))

	foo := root.Isolate(focusFoo())
	_, err := foo.Update(func(d *draft.Draft) error {
		d.Set("x", 1)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"foo": map[string]any{"a": 1, "x": 1}}, root.Value())
	assert.Equal(t, []draft.Edit{{Path: draft.Path{"foo", "x"}, Op: draft.OpAdd, Value: 1}}, rootChange.Edits)
	assert.Equal(t, []draft.Edit{{Path: draft.Path{"foo", "x"}, Op: draft.OpRemove}}, rootChange.Inverse)
}

func TestCustomLens_FocusReconciles(t *testing.T) {
	root := state.New(map[string]any{"foo": map[string]any{"a": 1, "c": 3}})
	foo := root.Isolate(focusFoo())
	root.EnablePatches()

	var rootChange state.Change
	root.RegisterMiddleware(state.Middleware(func(c state.Change, _ any) { rootChange = c }))

	_, err := foo.Update(func(d *draft.Draft) error {
		d.Delete("a")
		d.Set("b", 2)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"foo": map[string]any{"b": 2, "c": 3}}, root.Value())
	assert.Equal(t, []draft.Edit{
		{Path: draft.Path{"foo", "a"}, Op: draft.OpRemove},
		{Path: draft.Path{"foo", "b"}, Op: draft.OpAdd, Value: 2},
	}, rootChange.Edits)
}

func TestCustomLens_FocusReconcilesArrays(t *testing.T) {
	root := state.New(map[string]any{"foo": []any{1, 2, 3}})
	foo := root.Isolate(focusFoo())

	_, err := foo.Update(func(d *draft.Draft) error {
		d.Delete(0)
		d.Set(0, 9)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": []any{9, 3}}, root.Value())
}

func TestCustomLens_FocusWholesale(t *testing.T) {
	root := state.Create(map[string]any{"foo": map[string]any{"a": 1}})
	foo := root.Isolate(focusFoo())

	_, err := foo.Update(func(d *draft.Draft) error {
		d.Replace("leaf")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "leaf"}, root.Value())
}
