package native

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopForwarder struct{}

func (nopForwarder) NativeForward(input Handle) Handle { return input }

func TestBindLookupUnbind(t *testing.T) {
	before := BoundCallbacks()

	target := nopForwarder{}
	h := Bind(target)
	require.True(t, h.Valid())
	assert.Equal(t, before+1, BoundCallbacks())
	assert.NotNil(t, LookupCallback(h))

	Unbind(h)
	assert.Nil(t, LookupCallback(h))
	assert.Equal(t, before, BoundCallbacks())

	// Unbinding again, or looking up garbage, is harmless.
	Unbind(h)
	assert.Nil(t, LookupCallback(Handle(1<<30)))
}

func TestBind_UniqueHandles(t *testing.T) {
	h1 := Bind(nopForwarder{})
	h2 := Bind(nopForwarder{})
	defer Unbind(h1)
	defer Unbind(h2)
	assert.NotEqual(t, h1, h2)
}

func TestBind_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	handles := make([][]Handle, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				handles[i] = append(handles[i], Bind(nopForwarder{}))
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[Handle]bool)
	for _, hs := range handles {
		for _, h := range hs {
			assert.False(t, seen[h], "handle %s issued twice", h)
			seen[h] = true
			Unbind(h)
		}
	}
}
