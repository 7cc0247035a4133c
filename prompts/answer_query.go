package prompts

import (
	"context"
	"strings"

	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/go-collection-boot/async"
)

// AnswerConsentQuery asks the model to answer a patient's question using only
// the supplied context block assembled from that patient's own consent forms.
func AnswerConsentQuery(ctx context.Context, client llm.LLMClient, question, contextBlock string) <-chan async.Result[string] {
	return async.Go(func() (string, error) {
		systemPrompt, err := loadPrompt("templates/answer_query_system.md", map[string]string{})
		if err != nil {
			return "", err
		}

		userPrompt, err := loadPrompt("templates/answer_query_user.md", map[string]string{
			"QUESTION": question,
			"CONTEXT":  contextBlock,
		})
		if err != nil {
			return "", err
		}

		messages := []llm.Message{
			{
				Role:    "user",
				Content: userPrompt,
			},
		}

		var response string
		err = client.GenerateInference(ctx, messages, func(chunk string) error {
			response += chunk
			return nil
		}, llm.WithSystemPrompt(systemPrompt),
			llm.WithMaxTokens(2048),
			llm.WithTemperature(0.5),
		)

		if err != nil {
			return "", err
		}

		return strings.TrimSpace(response), nil
	})
}
