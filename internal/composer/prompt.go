// Package composer assembles the completion request for a chat turn: persona
// system prompt, retrieved memory context, conversation history, and the
// current user message.
package composer

import (
	"fmt"
	"strings"

	"github.com/ideawell/cofounderd/internal/completion"
	"github.com/ideawell/cofounderd/internal/retrieval"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

const defaultMaxContextTokens = 4000

// personaPrompt frames the assistant as a startup co-founder. The product
// speaks Russian; replies are kept short and action-oriented.
const personaPrompt = `Ты - AI-кофаундер, эксперт по предпринимательству и развитию стартапов.
Твоя задача - помочь пользователю пройти путь от идеи до запуска продукта.

Твой стиль общения:
- Дружелюбный и мотивирующий
- Конкретный и практичный
- Задаешь правильные вопросы
- Даешь пошаговые рекомендации
- Фокусируешься на действиях

Отвечай на русском языке, кратко и по делу. Максимум 2-3 предложения.`

// Composer builds enriched completion requests. It injects retrieved context
// into the system prompt under a token budget, dropping the lowest-scoring
// candidates first when the budget is tight.
type Composer struct {
	MaxContextTokens int
}

// New creates a Composer with the given token budget for injected context.
// If maxContextTokens <= 0, the default (4000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// Compose builds the completion request for one chat turn. history is mapped
// onto provider roles as-is; message becomes the final user turn. candidates
// must already be ranked best-first.
func (c *Composer) Compose(message string, history []retrieval.Turn, candidates []vectorstore.Candidate) completion.Request {
	msgs := make([]completion.Message, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := t.Role
		if role != "assistant" {
			role = "user"
		}
		msgs = append(msgs, completion.Message{Role: role, Content: t.Content})
	}
	msgs = append(msgs, completion.Message{Role: "user", Content: message})

	return completion.Request{
		System:   c.buildSystem(candidates),
		Messages: msgs,
	}
}

// buildSystem appends the retrieved-context block to the persona prompt,
// respecting the token budget. Candidates arrive ranked, so a budget miss
// drops from the tail.
func (c *Composer) buildSystem(candidates []vectorstore.Candidate) string {
	var sb strings.Builder
	sb.WriteString(personaPrompt)

	if len(candidates) == 0 {
		return sb.String()
	}

	contextHeader := "\n\nКонтекст из предыдущих разговоров:\n"
	remaining := c.MaxContextTokens - EstimateTokens(contextHeader)

	var entries []string
	for _, cand := range candidates {
		entry := formatCandidate(cand)
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		entries = append(entries, entry)
		remaining -= tokens
	}

	if len(entries) > 0 {
		sb.WriteString(contextHeader)
		for _, entry := range entries {
			sb.WriteString(entry)
		}
	}
	return sb.String()
}

func formatCandidate(c vectorstore.Candidate) string {
	return fmt.Sprintf("- %s\n", c.Content)
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
