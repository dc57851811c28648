package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPinAndGet(t *testing.T) {
	s := New(time.Hour)
	s.Pin("sess-1", "openai/gpt-5")

	model, ok := s.Get("sess-1")
	assert.True(t, ok)
	assert.Equal(t, "openai/gpt-5", model)
}

func TestGetMissingSession(t *testing.T) {
	s := New(time.Hour)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestGetEmptySessionID(t *testing.T) {
	s := New(time.Hour)
	s.Pin("", "should-not-store")
	_, ok := s.Get("")
	assert.False(t, ok)
}

func TestGetExpiresStaleSession(t *testing.T) {
	s := New(time.Millisecond)
	s.Pin("sess-1", "openai/gpt-5")
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("sess-1")
	assert.False(t, ok)
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	s := New(time.Millisecond)
	s.Pin("sess-1", "m")
	time.Sleep(5 * time.Millisecond)
	s.sweep()
	assert.Equal(t, 0, s.Size())
}
