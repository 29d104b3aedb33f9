package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"go.opentelemetry.io/otel/attribute"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClassifier classifies with the Bedrock Converse API and tool use.
type BedrockClassifier struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockClassifier wires a Converse client for modelID.
func NewBedrockClassifier(api bedrockConverseAPI, modelID string) *BedrockClassifier {
	if api == nil {
		panic("assistant: bedrock converse client cannot be nil")
	}
	return &BedrockClassifier{api: api, modelID: modelID}
}

// Classify implements Classifier.
func (c *BedrockClassifier) Classify(ctx context.Context, req Request) (Intent, error) {
	if strings.TrimSpace(c.modelID) == "" {
		return nil, errors.New("assistant: bedrock model id is required")
	}
	ctx, span := assistantTracer.Start(ctx, "assistant.bedrock.classify")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.modelID))

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID),
		Messages: bedrockMessages(req.History, req.Message),
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(defaultMaxTokens),
			Temperature: aws.Float32(defaultTemperature),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}
	if len(req.Tools) > 0 {
		cfg, err := bedrockToolConfig(req.Tools)
		if err != nil {
			return nil, err
		}
		input.ToolConfig = cfg
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: bedrock converse: %w", err)
	}
	return bedrockIntent(out)
}

func bedrockToolConfig(tools []Tool) (*brtypes.ToolConfiguration, error) {
	specs := make([]brtypes.Tool, 0, len(tools))
	for _, t := range tools {
		schema, err := t.ParametersMap()
		if err != nil {
			return nil, err
		}
		specs = append(specs, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(t.Name),
			Description: aws.String(t.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
		}})
	}
	return &brtypes.ToolConfiguration{
		Tools:      specs,
		ToolChoice: &brtypes.ToolChoiceMemberAuto{Value: brtypes.AutoToolChoice{}},
	}, nil
}

// bedrockMessages merges consecutive turns of the same role and drops leading
// assistant turns, since Converse requires alternating roles starting with the user.
func bedrockMessages(history []whatsapp.Message, message string) []brtypes.Message {
	var out []brtypes.Message
	add := func(role brtypes.ConversationRole, text string) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, &brtypes.ContentBlockMemberText{Value: text})
			return
		}
		if len(out) == 0 && role != brtypes.ConversationRoleUser {
			return
		}
		out = append(out, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		})
	}
	for _, m := range usableHistory(history) {
		role := brtypes.ConversationRoleUser
		if historyRole(m) == "assistant" {
			role = brtypes.ConversationRoleAssistant
		}
		add(role, m.Content)
	}
	add(brtypes.ConversationRoleUser, message)
	return out
}

func bedrockIntent(out *bedrockruntime.ConverseOutput) (Intent, error) {
	if out == nil || out.Output == nil {
		return nil, errors.New("assistant: bedrock returned no output")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("assistant: unexpected bedrock output type %T", out.Output)
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberToolUse:
			args, err := bedrockToolArgs(b.Value.Input)
			if err != nil {
				return nil, err
			}
			return Decode(aws.ToString(b.Value.Name), args)
		case *brtypes.ContentBlockMemberText:
			text.WriteString(b.Value)
		}
	}
	return Reply{Text: text.String()}, nil
}

func bedrockToolArgs(input document.Interface) ([]byte, error) {
	if input == nil {
		return nil, nil
	}
	raw, err := input.MarshalSmithyDocument()
	if err != nil {
		return nil, fmt.Errorf("assistant: decode bedrock tool input: %w", err)
	}
	return raw, nil
}
