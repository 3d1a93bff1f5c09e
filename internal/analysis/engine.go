// Package analysis talks to the transcription and language models: a
// remote pipeline client for the upload-and-transcribe endpoint and a
// local engine driving the OpenAI API directly.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/starford/ansuz/internal/models"
)

// Engine performs the individual AI steps of the meeting pipeline.
type Engine interface {
	// Transcribe converts an audio blob to text.
	Transcribe(ctx context.Context, blob *models.AudioBlob) (string, error)
	// Summarize produces a summary and key points for a transcript.
	Summarize(ctx context.Context, transcript string) (string, []string, error)
	// ExtractTasks pulls action items with optional date-only deadlines
	// out of a transcript.
	ExtractTasks(ctx context.Context, transcript string) ([]models.Task, error)
	// Sentiment classifies the overall tone; nil when the model answer
	// falls outside the closed set.
	Sentiment(ctx context.Context, transcript string) (*models.Sentiment, error)
	// Language names the dominant language of the transcript.
	Language(ctx context.Context, transcript string) (*string, error)
	// Translate renders a note summary in the target language.
	Translate(ctx context.Context, summary, targetLanguage string) (string, error)
	// Interpret answers a spoken command against a note transcript.
	Interpret(ctx context.Context, command, transcript string) (string, error)
}

// SpeechOutput is the optional text-to-speech capability. A nil value
// means speech is unavailable; callers check once and skip silently.
type SpeechOutput interface {
	// Speak synthesizes text and returns encoded audio.
	Speak(ctx context.Context, text string) ([]byte, error)
}

// OpenAIEngine implements Engine and SpeechOutput on the OpenAI API.
type OpenAIEngine struct {
	client          oai.Client
	chatModel       string
	transcribeModel string
	voice           string
	logger          *slog.Logger
	baseOpts        []option.RequestOption
}

// EngineOption configures an OpenAIEngine.
type EngineOption func(*OpenAIEngine)

// WithBaseURL overrides the API base URL, for tests and proxies.
func WithBaseURL(url string) EngineOption {
	return func(e *OpenAIEngine) {
		e.client = oai.NewClient(append(e.baseOpts, option.WithBaseURL(url))...)
	}
}

// NewOpenAIEngine builds an engine for the given API key and models.
func NewOpenAIEngine(apiKey, chatModel, transcribeModel, voice string, logger *slog.Logger, opts ...EngineOption) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analysis: api key must not be empty")
	}
	e := &OpenAIEngine{
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
		voice:           voice,
		logger:          logger,
		baseOpts:        []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	e.client = oai.NewClient(e.baseOpts...)
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Transcribe implements Engine using the audio transcription endpoint.
func (e *OpenAIEngine) Transcribe(ctx context.Context, blob *models.AudioBlob) (string, error) {
	resp, err := e.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(e.transcribeModel),
		File:  oai.File(bytes.NewReader(blob.Data), blob.Filename, blob.MIME),
	})
	if err != nil {
		return "", fmt.Errorf("analysis: transcribe: %w", err)
	}
	return resp.Text, nil
}

func (e *OpenAIEngine) chat(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.chatModel),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	}
	if jsonMode {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("analysis: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("analysis: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Summarize implements Engine.
func (e *OpenAIEngine) Summarize(ctx context.Context, transcript string) (string, []string, error) {
	out, err := e.chat(ctx,
		`You summarize meeting transcripts. Respond with a JSON object: {"summary": "a concise paragraph", "key_points": ["point", ...]}.`,
		transcript, true)
	if err != nil {
		return "", nil, err
	}
	return parseSummary(out)
}

// ExtractTasks implements Engine. Deadlines are resolved against
// today's date so relative phrases ("by Friday") become ISO dates.
func (e *OpenAIEngine) ExtractTasks(ctx context.Context, transcript string) ([]models.Task, error) {
	today := time.Now().UTC().Format("2006-01-02")
	out, err := e.chat(ctx,
		`You extract action items from meeting transcripts. Today is `+today+`. Respond with a JSON object: {"tasks": [{"description": "...", "deadline": "YYYY-MM-DD or null"}]}. Resolve relative dates against today. Use null when no deadline is mentioned.`,
		transcript, true)
	if err != nil {
		return nil, err
	}
	return parseTasks(out)
}

// Sentiment implements Engine.
func (e *OpenAIEngine) Sentiment(ctx context.Context, transcript string) (*models.Sentiment, error) {
	out, err := e.chat(ctx,
		`Classify the overall tone of this meeting transcript. Answer with exactly one word: Positive, Neutral, Tense or Urgent.`,
		transcript, false)
	if err != nil {
		return nil, err
	}
	s := parseSentiment(out)
	if s == nil {
		e.logger.Warn("analysis: sentiment outside closed set, dropping", slog.String("answer", out))
	}
	return s, nil
}

// Language implements Engine.
func (e *OpenAIEngine) Language(ctx context.Context, transcript string) (*string, error) {
	out, err := e.chat(ctx,
		`Name the dominant language of this text in English, e.g. "English" or "German". Answer with the language name only.`,
		transcript, false)
	if err != nil {
		return nil, err
	}
	lang := trimAnswer(out)
	if lang == "" {
		return nil, nil
	}
	return &lang, nil
}

// Translate implements Engine.
func (e *OpenAIEngine) Translate(ctx context.Context, summary, targetLanguage string) (string, error) {
	out, err := e.chat(ctx,
		`Translate the following meeting summary into `+targetLanguage+`. Respond with the translation only.`,
		summary, false)
	if err != nil {
		return "", err
	}
	return trimAnswer(out), nil
}

// Interpret implements Engine.
func (e *OpenAIEngine) Interpret(ctx context.Context, command, transcript string) (string, error) {
	out, err := e.chat(ctx,
		"You answer questions about a meeting. Use only the transcript below. Keep answers short and speakable.\n\nTranscript:\n"+transcript,
		command, false)
	if err != nil {
		return "", err
	}
	return trimAnswer(out), nil
}

// Speak implements SpeechOutput using the speech endpoint.
func (e *OpenAIEngine) Speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := e.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel("tts-1"),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(e.voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: speech: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analysis: read speech audio: %w", err)
	}
	return data, nil
}
