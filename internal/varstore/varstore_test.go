package varstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/evelog/internal/core"
)

func TestRegister_AssignsIDsPerType(t *testing.T) {
	s := New()

	a := s.Register("a", core.VarTypeFlowBit)
	b := s.Register("b", core.VarTypeFlowBit)
	c := s.Register("a", core.VarTypeFlowInt)

	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)
	assert.Equal(t, uint32(1), c, "ids are allocated per type")
	assert.Equal(t, 3, s.Len())
}

func TestRegister_Idempotent(t *testing.T) {
	s := New()
	first := s.Register("seen", core.VarTypeFlowVar)
	second := s.Register("seen", core.VarTypeFlowVar)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestLookupName(t *testing.T) {
	s := New()
	id := s.Register("traffic/id/dns", core.VarTypeFlowBit)

	name, ok := s.LookupName(id, core.VarTypeFlowBit)
	require.True(t, ok)
	assert.Equal(t, "traffic/id/dns", name)

	_, ok = s.LookupName(id, core.VarTypePktVar)
	assert.False(t, ok, "wrong type must not resolve")

	_, ok = s.LookupName(99, core.VarTypeFlowBit)
	assert.False(t, ok)

	got, ok := s.Lookup("traffic/id/dns", core.VarTypeFlowBit)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestRegister_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Register(fmt.Sprintf("bit-%d", i), core.VarTypeFlowBit)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
	for i := 0; i < 100; i++ {
		id, ok := s.Lookup(fmt.Sprintf("bit-%d", i), core.VarTypeFlowBit)
		require.True(t, ok)
		name, ok := s.LookupName(id, core.VarTypeFlowBit)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("bit-%d", i), name)
	}
}
