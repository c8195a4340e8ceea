package voice

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not on PATH", name)
	}
}

func TestSynthesizerUnavailable(t *testing.T) {
	s := NewCommandSynthesizer(config.SpeechConfig{Commands: []string{"definitely-not-a-tts-binary"}}, zap.NewNop())
	defer s.Close()

	assert.False(t, s.Available())
	assert.ErrorIs(t, s.Speak("hello"), entity.ErrVoiceUnavailable)
	assert.False(t, s.Speaking())
}

func TestSynthesizerDisabled(t *testing.T) {
	requireCommand(t, "cat")

	s := NewCommandSynthesizer(config.SpeechConfig{Commands: []string{"cat"}, Disabled: true}, zap.NewNop())
	defer s.Close()

	assert.False(t, s.Available())
}

func TestSynthesizerPicksFirstAvailable(t *testing.T) {
	requireCommand(t, "cat")

	s := NewCommandSynthesizer(config.SpeechConfig{Commands: []string{"missing-tts", "", "cat"}}, zap.NewNop())
	defer s.Close()

	require.True(t, s.Available())
	require.NoError(t, s.Speak("The lease runs for ten years."))
	assert.Eventually(t, func() bool { return !s.Speaking() }, 2*time.Second, 10*time.Millisecond)
}

func TestSynthesizerIgnoresBlankText(t *testing.T) {
	requireCommand(t, "cat")

	s := NewCommandSynthesizer(config.SpeechConfig{Commands: []string{"cat"}}, zap.NewNop())
	defer s.Close()

	require.NoError(t, s.Speak("   "))
	assert.False(t, s.Speaking())
}

func TestSynthesizerCancelStopsSpeech(t *testing.T) {
	requireCommand(t, "sleep")

	s := NewCommandSynthesizer(config.SpeechConfig{Commands: []string{"sleep 30"}}, zap.NewNop())
	defer s.Close()

	require.NoError(t, s.Speak("first"))
	require.NoError(t, s.Speak("second"))
	assert.Eventually(t, s.Speaking, time.Second, 5*time.Millisecond)

	start := time.Now()
	s.Cancel()
	assert.Eventually(t, func() bool { return !s.Speaking() }, 2*time.Second, 5*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSynthesizerSpeakAfterClose(t *testing.T) {
	requireCommand(t, "cat")

	s := NewCommandSynthesizer(config.SpeechConfig{Commands: []string{"cat"}}, zap.NewNop())
	s.Close()
	s.Close()

	assert.Error(t, s.Speak("hello"))
}
