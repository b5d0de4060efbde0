package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillGuard(t *testing.T) {
	var g fillGuard

	t.Run("fill without invalidation stores", func(t *testing.T) {
		gen := g.generation(1)
		stored := false
		assert.True(t, g.fill(1, gen, func() { stored = true }))
		assert.True(t, stored)
	})

	t.Run("invalidation after generation blocks fill", func(t *testing.T) {
		gen := g.generation(2)
		dropped := false
		g.invalidate(2, func() { dropped = true })
		assert.True(t, dropped)

		assert.False(t, g.fill(2, gen, func() { t.Fatal("stale fill stored") }))
		assert.True(t, g.fill(2, g.generation(2), func() {}))
	})

	t.Run("other stripes are unaffected", func(t *testing.T) {
		gen := g.generation(3)
		g.invalidate(4, func() {})
		assert.True(t, g.fill(3, gen, func() {}))
	})

	t.Run("negative ids map to a stripe", func(t *testing.T) {
		gen := g.generation(-5)
		assert.True(t, g.fill(-5, gen, func() {}))
	})
}

func TestFillGuardConcurrent(t *testing.T) {
	var g fillGuard
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.fill(7, g.generation(7), func() {})
		}()
		go func() {
			defer wg.Done()
			g.invalidate(7, func() {})
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), g.generation(7))
}
