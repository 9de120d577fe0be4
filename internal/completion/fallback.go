package completion

import (
	"math/rand"
	"sync"
)

// fallbackReplies is the canned pool served when the completion provider is
// down. Replies are phrased as follow-up prompts so the conversation keeps
// moving even without the model.
var fallbackReplies = []string{
	"Отличная идея! Расскажи подробнее о проблеме, которую решает твой продукт.",
	"Интересно! Кто твоя целевая аудитория?",
	"Хорошо! Как ты планируешь монетизировать эту идею?",
	"Понятно! Какие у тебя есть ресурсы для реализации?",
	"Отлично! С чего ты хочешь начать?",
}

// Fallback picks degraded replies from a fixed pool.
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback creates a Fallback seeded from src. A nil src seeds from the
// global source, so production picks vary while tests can pin the sequence.
func NewFallback(src rand.Source) *Fallback {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &Fallback{rng: rand.New(src)}
}

// Reply returns one reply from the pool.
func (f *Fallback) Reply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fallbackReplies[f.rng.Intn(len(fallbackReplies))]
}

// Pool returns a copy of the full reply pool.
func Pool() []string {
	out := make([]string, len(fallbackReplies))
	copy(out, fallbackReplies)
	return out
}
