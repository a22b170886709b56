package resolver

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"marketinsight/internal/model"
)

// Inferrer guesses which of the candidate brands a product title belongs to.
// It returns "" when none fits.
type Inferrer interface {
	InferBrand(ctx context.Context, title string, candidates []string) (string, error)
}

const inferPrompt = `You match product titles from computer shops to brands.
Answer with exactly one brand from the list, copied verbatim, or NONE if no brand in the list makes the product.
Brands:
`

// OpenAIInferrer asks a chat model to pick the brand.
type OpenAIInferrer struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIInferrer(client *openai.Client) *OpenAIInferrer {
	return &OpenAIInferrer{Client: client, Model: openai.GPT4oMini}
}

func (i *OpenAIInferrer) InferBrand(ctx context.Context, title string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	resp, err := i.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: i.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: inferPrompt + strings.Join(candidates, "\n")},
			{Role: openai.ChatMessageRoleUser, Content: title},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", eris.Wrap(err, "resolver: infer brand")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if strings.EqualFold(answer, "NONE") {
		return "", nil
	}
	return answer, nil
}

// Infer asks inf for the brand of title. Only answers naming a brand that is
// already known are accepted, so inference never creates identities.
func (r *BrandResolver) Infer(ctx context.Context, inf Inferrer, title string) (*model.Brand, error) {
	if inf == nil || strings.TrimSpace(title) == "" {
		return nil, nil
	}
	answer, err := inf.InferBrand(ctx, title, r.Titles())
	if err != nil {
		return nil, err
	}
	b := r.Lookup(answer)
	if b == nil && answer != "" {
		zap.L().Debug("resolver: inferred brand is not known",
			zap.String("title", title), zap.String("answer", answer))
	}
	return b, nil
}
