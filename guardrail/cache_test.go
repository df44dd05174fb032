package guardrail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ---- VerdictCache Tests ----

func TestVerdictCacheHitAndMiss(t *testing.T) {
	cache := NewVerdictCache(10, time.Hour)
	key := Key("Relevance Guardrail", "hello")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Put(key, Verdict{Passed: true, Reasoning: "conversational"})

	v, ok := cache.Get(key)
	assert.True(t, ok)
	assert.True(t, v.Passed)
	assert.Equal(t, "conversational", v.Reasoning)
}

func TestVerdictCacheKeyNormalizesInput(t *testing.T) {
	assert.Equal(t, Key("g", "Hello  World"), Key("g", "hello world"))
	assert.NotEqual(t, Key("relevance", "x"), Key("jailbreak", "x"))
}

func TestVerdictCacheExpires(t *testing.T) {
	cache := NewVerdictCache(10, time.Hour)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put("k", Verdict{Passed: true})
	now = now.Add(2 * time.Hour)

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestVerdictCacheStaysBounded(t *testing.T) {
	cache := NewVerdictCache(5, time.Hour)

	for i := 0; i < 20; i++ {
		cache.Put(Key("g", string(rune('a'+i))), Verdict{Passed: true})
	}

	assert.LessOrEqual(t, cache.Len(), 5)
}
