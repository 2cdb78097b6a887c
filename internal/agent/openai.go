package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"petavatar/internal/domain"
)

const (
	// DefaultChatModel analyzes the pet image and writes the identity.
	DefaultChatModel = "gpt-4o-mini"

	// DefaultImageModel renders the avatar.
	DefaultImageModel = "dall-e-3"

	// DefaultTimeout bounds one full invocation (analysis plus rendering).
	DefaultTimeout = 120 * time.Second
)

const systemPrompt = `You transform pet photos into professional human avatar identities.
Given a pet image, respond with a single JSON object with this exact shape:
{
  "pet_analysis": {"species": "", "breed": "", "expression": "", "personality_traits": [], "confidence": 0.0},
  "career_profile": {"profession": "", "seniority": "", "industry": "", "rationale": ""},
  "identity": {"human_name": "", "job_title": "", "seniority": "", "bio": "", "skills": [],
               "career_trajectory": {}, "similarity_score": 0.0}
}
Derive the career from the personality analysis. Make the identity feel authentic and
professional. similarity_score (0.0-1.0) reflects how well the pet's personality
translates to the human identity. Respond with JSON only.`

// OpenAIInvoker implements Invoker against the OpenAI API: a JSON-mode vision
// chat completion produces the analysis/identity payload and an image
// generation call renders the avatar from the mapped career profile.
type OpenAIInvoker struct {
	client     openai.Client
	chatModel  string
	imageModel string
	timeout    time.Duration
}

// OpenAIOptions configures the invoker; zero fields fall back to defaults.
type OpenAIOptions struct {
	APIKey     string
	ChatModel  string
	ImageModel string
	Timeout    time.Duration
}

// NewOpenAIInvoker builds an invoker from options.
func NewOpenAIInvoker(opts OpenAIOptions) (*OpenAIInvoker, error) {
	if opts.APIKey == "" {
		return nil, domain.E(domain.KindDependency, "openai api key not set")
	}
	inv := &OpenAIInvoker{
		client:     openai.NewClient(option.WithAPIKey(opts.APIKey)),
		chatModel:  opts.ChatModel,
		imageModel: opts.ImageModel,
		timeout:    opts.Timeout,
	}
	if inv.chatModel == "" {
		inv.chatModel = DefaultChatModel
	}
	if inv.imageModel == "" {
		inv.imageModel = DefaultImageModel
	}
	if inv.timeout <= 0 {
		inv.timeout = DefaultTimeout
	}
	return inv, nil
}

func (c *OpenAIInvoker) Invoke(ctx context.Context, img Image) (*Result, error) {
	if len(img.Data) == 0 {
		return nil, domain.E(domain.KindValidation, "empty source image")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := c.analyze(ctx, img)
	if err != nil {
		return nil, err
	}

	avatar, err := c.renderAvatar(ctx, payload)
	if err != nil {
		return nil, err
	}

	return &Result{Payload: *payload, AvatarPNG: avatar}, nil
}

func (c *OpenAIInvoker) analyze(ctx context.Context, img Image) (*domain.ResultPayload, error) {
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(img.Data))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart("Process this pet image through the complete avatar generation workflow."),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, domain.Wrap(domain.KindDependency, "agent analysis call failed", err)
	}
	if len(completion.Choices) == 0 {
		return nil, domain.E(domain.KindDependency, "agent returned no completion choices")
	}

	payload, err := ParsePayload([]byte(completion.Choices[0].Message.Content))
	if err != nil {
		return nil, domain.Wrap(domain.KindDependency, "malformed agent response", err)
	}
	return payload, nil
}

func (c *OpenAIInvoker) renderAvatar(ctx context.Context, payload *domain.ResultPayload) ([]byte, error) {
	prompt := avatarPrompt(payload)

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.imageModel),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	})
	if err != nil {
		return nil, domain.Wrap(domain.KindDependency, "avatar generation call failed", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, domain.E(domain.KindDependency, "avatar generation returned no image")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, domain.Wrap(domain.KindDependency, "decode avatar image", err)
	}
	return data, nil
}

func avatarPrompt(payload *domain.ResultPayload) string {
	id := payload.Identity
	return fmt.Sprintf(
		"Photorealistic corporate headshot of %s, a %s %s. %s Attire and setting match the profession. Neutral studio background.",
		id.HumanName, id.Seniority, id.JobTitle, id.Bio,
	)
}

// ParsePayload decodes and validates the agent's JSON response. Missing
// required fields fail fast rather than propagating a partial payload.
func ParsePayload(raw []byte) (*domain.ResultPayload, error) {
	var payload domain.ResultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode agent payload: %w", err)
	}
	switch {
	case payload.PetAnalysis.Species == "":
		return nil, fmt.Errorf("agent payload missing pet_analysis.species")
	case payload.CareerProfile.Profession == "":
		return nil, fmt.Errorf("agent payload missing career_profile.profession")
	case payload.Identity.HumanName == "":
		return nil, fmt.Errorf("agent payload missing identity.human_name")
	case payload.Identity.JobTitle == "":
		return nil, fmt.Errorf("agent payload missing identity.job_title")
	}
	if payload.Identity.SimilarityScore < 0 || payload.Identity.SimilarityScore > 1 {
		return nil, fmt.Errorf("agent payload similarity_score %v out of range", payload.Identity.SimilarityScore)
	}
	return &payload, nil
}

var _ Invoker = (*OpenAIInvoker)(nil)
