package id

import (
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Version7(t *testing.T) {
	s := New()

	u, err := uuid.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
	assert.True(t, Valid(s))
}

func TestNew_TimeOrdered(t *testing.T) {
	ids := make([]string, 200)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids generated in sequence must sort in sequence")
}

func TestNew_UniqueConcurrent(t *testing.T) {
	const n = 1000
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := New()
			mu.Lock()
			defer mu.Unlock()
			seen[v] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestShort(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{16}$`)
	a, b := Short(), Short()
	assert.Regexp(t, re, a)
	assert.NotEqual(t, a, b)
}

func TestValid(t *testing.T) {
	assert.False(t, Valid("not-a-uuid"))
	assert.False(t, Valid(""))
}
