package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"qna-agents/internal/answer"
	"qna-agents/internal/inference"
)

const defaultChatTemperature = 0

const extractPrompt = `You are an extractive question answering model.
Given a paragraph and a question, return up to %d candidate answers.
Every answer must be copied verbatim from the paragraph, as a short span.
Score each answer with your confidence between 0 and 1.
Respond with JSON only: {"answers":[{"text":"...","score":0.0}]}.
Return {"answers":[]} when the paragraph does not answer the question.`

// ChatCompleter is the slice of the OpenAI client used here.
type ChatCompleter interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error)
}

type openAIChat struct {
	client *openai.Client
}

func (c openAIChat) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Reader answers questions by asking a chat model for verbatim spans and
// locating them in the paragraph.
type Reader struct {
	model      openai.ChatModel
	chat       ChatCompleter
	maxAnswers int
}

// NewLoader returns a Loader that validates credentials and builds a Reader.
// No request is sent until the first question.
func NewLoader(apiKey string, model openai.ChatModel, maxAnswers int) inference.Loader {
	return inference.LoaderFunc(func(ctx context.Context) (inference.Model, error) {
		if apiKey == "" {
			return nil, &inference.ModelLoadError{Err: errors.New("OPENAI_API_KEY is not set")}
		}
		cli := openai.NewClient(option.WithAPIKey(apiKey))
		return NewReader(openAIChat{client: &cli}, model, maxAnswers), nil
	})
}

// NewReader wraps any ChatCompleter.
func NewReader(chat ChatCompleter, model openai.ChatModel, maxAnswers int) *Reader {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if maxAnswers <= 0 {
		maxAnswers = 5
	}
	return &Reader{model: model, chat: chat, maxAnswers: maxAnswers}
}

func (r *Reader) ID() string {
	return "openai:" + string(r.model)
}

func (r *Reader) FindAnswers(ctx context.Context, question, paragraph string) ([]answer.Candidate, error) {
	if r == nil || r.chat == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	content, err := r.chat.Complete(ctx, openai.ChatCompletionNewParams{
		Model:       r.model,
		Messages:    buildMessages(fmt.Sprintf(extractPrompt, r.maxAnswers), fmt.Sprintf("Paragraph:\n%s\n\nQuestion: %s", paragraph, question)),
		Temperature: openai.Float(defaultChatTemperature),
	})
	if err != nil {
		return nil, err
	}
	spans, err := parseSpans(content)
	if err != nil {
		return nil, err
	}
	return locateSpans(paragraph, spans, r.maxAnswers), nil
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}

// stripFences removes a surrounding markdown code fence, which chat models add
// even when asked for bare JSON.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
