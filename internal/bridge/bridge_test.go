package bridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

func TestSetGetDelete(t *testing.T) {
	b := New(nil)
	assert.Nil(t, b.Get("missing"))

	b.Set("k", 42, "test")
	assert.Equal(t, 42, b.Get("k"))
	assert.Equal(t, "test", b.Source("k"))

	b.Set("k", "overwritten", "other")
	assert.Equal(t, "overwritten", b.Get("k"))

	b.Delete("k")
	assert.Nil(t, b.Get("k"))
}

func TestScopedLookupFallsBackToRoot(t *testing.T) {
	b := New(nil)
	b.BubbleSet("Counter", 10, "test", "")
	assert.Equal(t, 10, b.GetScoped("Counter", "PR_inner"))

	b.SetScoped("Counter", 99, "test", "PR_inner")
	assert.Equal(t, 99, b.GetScoped("Counter", "PR_inner"))
	// Root value untouched.
	assert.Equal(t, 10, b.GetScoped("Counter", scope.Root))
}

func TestIncrementAtomicUnderConcurrency(t *testing.T) {
	b := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				b.Increment("idx", 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), b.Get("idx"))
}

func TestIncrementFromJSONNumber(t *testing.T) {
	b := New(nil)
	b.Set("idx", float64(4), "test")
	assert.Equal(t, int64(5), b.Increment("idx", 1))
}

func TestObjectSideTableSharedWithChild(t *testing.T) {
	parent := New(nil)
	handle := &struct{ open bool }{open: true}
	parent.SetObject("_Database_", handle)

	child := NewChild(parent, nil)
	assert.Same(t, handle, child.GetObject("_Database_"))

	// Keyed data is NOT shared.
	parent.Set("X", 1, "test")
	assert.Nil(t, child.Get("X"))

	child.DeleteObject("_Database_")
	assert.Nil(t, parent.GetObject("_Database_"))
}

func TestGetProviderIDNearestWins(t *testing.T) {
	b := New(nil)
	stack := scope.NewStack().Push("A").Push("B")
	b.Set(ProviderIndexKey("A", "T"), "node-a", "test")
	b.Set(ProviderIndexKey("B", "U"), "node-b", "test")

	assert.Equal(t, "node-a", b.GetProviderID(stack, "T"))
	assert.Equal(t, "node-b", b.GetProviderID(stack, "U"))
	assert.Equal(t, "", b.GetProviderID(stack, "V"))
}

func TestGetProviderIDNestedSameType(t *testing.T) {
	b := New(nil)
	stack := scope.NewStack().Push("outer").Push("inner")
	b.Set(ProviderIndexKey("outer", "DATABASE"), "db-outer", "test")
	b.Set(ProviderIndexKey("inner", "DATABASE"), "db-inner", "test")

	assert.Equal(t, "db-inner", b.GetProviderID(stack, "DATABASE"))
}

func TestSuperFunctionLifecycle(t *testing.T) {
	b := New(nil)
	stack := scope.NewStack().Push("PR_browser")
	b.Set(ProviderIndexKey("PR_browser", "Browser Provider"), "bp-1", "test")

	called := false
	b.RegisterSuperFunction("bp-1", "Click", func(args map[string]interface{}) (interface{}, error) {
		called = true
		return true, nil
	})

	id, fn := b.GetHijackHandler(stack, "Click")
	require.Equal(t, "bp-1", id)
	require.NotNil(t, fn)

	_, err := b.InvokeHijack(id, "Click", nil)
	require.NoError(t, err)
	assert.True(t, called)

	b.UnregisterSuperFunctions("bp-1")
	id, fn = b.GetHijackHandler(stack, "Click")
	assert.Empty(t, id)
	assert.Nil(t, fn)
}

func TestHijackHandlerIgnoresScopesOffStack(t *testing.T) {
	b := New(nil)
	b.Set(ProviderIndexKey("PR_other", "Browser Provider"), "bp-2", "test")
	b.RegisterSuperFunction("bp-2", "Click", func(map[string]interface{}) (interface{}, error) { return nil, nil })

	id, fn := b.GetHijackHandler(scope.NewStack(), "Click")
	assert.Empty(t, id)
	assert.Nil(t, fn)
}

func TestActivePortsConsumedAtomically(t *testing.T) {
	b := New(nil)
	b.SetActivePorts("n1", []string{"Flow", "Body"}, "n1")
	b.SetActivePorts("n2", []string{"Flow"}, "n2")

	assert.Equal(t, []string{"n1", "n2"}, b.ActiveNodes())

	ports := b.TakeActivePorts("n1")
	assert.Equal(t, []string{"Flow", "Body"}, ports)
	assert.Nil(t, b.TakeActivePorts("n1"))
	assert.Equal(t, []string{"n2"}, b.ActiveNodes())
}

func TestTakeActivePortsFromJSONList(t *testing.T) {
	b := New(nil)
	b.Set(ActivePortsKey("n1"), []interface{}{"Error"}, "n1")
	assert.Equal(t, []string{"Error"}, b.TakeActivePorts("n1"))
}

func TestSnapshotRestore(t *testing.T) {
	b := New(nil)
	b.Set("a", 1, "test")
	b.Set("b", "two", "test")

	snap := b.Snapshot()
	b.Set("a", 999, "test")
	b.Set("c", true, "test")

	b.Restore(snap)
	assert.Equal(t, 1, b.Get("a"))
	assert.Equal(t, "two", b.Get("b"))
	assert.Nil(t, b.Get("c"))

	// Snapshot is a copy, not a view.
	snap["a"] = "mutated"
	assert.Equal(t, 1, b.Get("a"))
}

func TestWritesSwallowedAfterClose(t *testing.T) {
	b := New(nil)
	b.Set("k", 1, "test")
	b.Close()
	b.Set("k", 2, "late worker")
	assert.Equal(t, 1, b.Get("k"))
}
