package regexcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_CachesCompiledPattern(t *testing.T) {
	Clear()

	re1, err := Get(`\d+`)
	require.NoError(t, err)
	re2, err := Get(`\d+`)
	require.NoError(t, err)

	assert.Same(t, re1, re2)
	assert.Equal(t, 1, Size())
	assert.True(t, re1.MatchString("123"))
}

func TestGet_InvalidPattern(t *testing.T) {
	_, err := Get(`[invalid`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustGet(`[invalid`) })
}

func TestMatchWhole(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{`[a-z]+`, "abc", true},
		{`[a-z]+`, "abc1", false},
		{`[A-Za-z0-9_]{3,16}`, "' OR '1'='1", false},
		{`\d{5}`, "12345", true},
		{`a|b`, "ab", false},
		{`a|b`, "b", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.value, func(t *testing.T) {
			got, err := MatchWhole(tt.pattern, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchWhole_InvalidPattern(t *testing.T) {
	_, err := MatchWhole(`(`, "x")
	assert.Error(t, err)
}

func TestGet_Concurrent(t *testing.T) {
	Clear()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Get(`concurrent\d`)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, Size())
}
