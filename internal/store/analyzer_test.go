package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeMemoryTextStripsParticles(t *testing.T) {
	tokens := TokenizeMemoryText("한국어로 작성된 문서입니다")
	assert.Contains(t, tokens, "한국어")
}

func TestTokenizeMemoryTextSplitsIdentifiers(t *testing.T) {
	tokens := TokenizeMemoryText("getUserById and snake_case_name")
	assert.Contains(t, tokens, "get")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "snake")
	assert.Contains(t, tokens, "case")
}

func TestTokenizeMemoryTextMixedScript(t *testing.T) {
	tokens := TokenizeMemoryText("한국어 mixed with English")
	assert.Contains(t, tokens, "한국어")
	assert.Contains(t, tokens, "mixed")
	assert.Contains(t, tokens, "english")
}

func TestStripHangulParticleShortWordUnchanged(t *testing.T) {
	assert.Equal(t, "가", stripHangulParticle("가"))
}
