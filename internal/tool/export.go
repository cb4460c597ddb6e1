package tool

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAITool converts d to a Chat Completions tool parameter.
func OpenAITool(d Descriptor) openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  shared.FunctionParameters(d.ParametersMap()),
		},
	}
}

// OpenAIResponsesTool converts d to a Responses API tool parameter.
func OpenAIResponsesTool(d Descriptor) responses.ToolUnionParam {
	return responses.ToolUnionParam{
		OfFunction: &responses.FunctionToolParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  d.ParametersMap(),
		},
	}
}

// AnthropicTool converts d to a Messages API tool parameter.
func AnthropicTool(d Descriptor) anthropic.ToolUnionParam {
	params := d.ParametersMap()
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: params["properties"],
				Required:   append([]string(nil), d.Parameters.Required...),
			},
		},
	}
}
