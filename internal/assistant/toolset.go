package assistant

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Toolset is the prompt and tool list sent with every classification.
type Toolset struct {
	SystemPrompt string
	Tools        []Tool
}

// DefaultToolset uses the built-in prompt and every tool.
func DefaultToolset() Toolset {
	return Toolset{SystemPrompt: DefaultSystemPrompt, Tools: DefaultTools()}
}

// Lookup finds a tool by name.
func (t Toolset) Lookup(name string) (Tool, bool) {
	for _, tool := range t.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

type toolsetFile struct {
	SystemPrompt     string            `yaml:"system_prompt"`
	DisabledTools    []string          `yaml:"disabled_tools"`
	ToolDescriptions map[string]string `yaml:"tool_descriptions"`
}

// LoadToolset reads prompt and tool overrides from a YAML file. An empty path
// returns the defaults.
//
//	system_prompt: |
//	  Sos el asistente de ...
//	disabled_tools: [request_human]
//	tool_descriptions:
//	  check_stock: Consultar stock por medida
func LoadToolset(path string) (Toolset, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultToolset(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Toolset{}, fmt.Errorf("assistant: read toolset: %w", err)
	}
	return ParseToolset(raw)
}

// ParseToolset applies YAML overrides to the defaults. Unknown tool names are rejected.
func ParseToolset(raw []byte) (Toolset, error) {
	var file toolsetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Toolset{}, fmt.Errorf("assistant: parse toolset: %w", err)
	}

	set := DefaultToolset()
	if p := strings.TrimSpace(file.SystemPrompt); p != "" {
		set.SystemPrompt = p
	}

	disabled := make(map[string]bool, len(file.DisabledTools))
	for _, name := range file.DisabledTools {
		if _, ok := set.Lookup(name); !ok {
			return Toolset{}, fmt.Errorf("%w: %q in disabled_tools", ErrUnknownTool, name)
		}
		disabled[name] = true
	}
	for name := range file.ToolDescriptions {
		if _, ok := set.Lookup(name); !ok {
			return Toolset{}, fmt.Errorf("%w: %q in tool_descriptions", ErrUnknownTool, name)
		}
	}

	tools := make([]Tool, 0, len(set.Tools))
	for _, tool := range set.Tools {
		if disabled[tool.Name] {
			continue
		}
		if desc := strings.TrimSpace(file.ToolDescriptions[tool.Name]); desc != "" {
			tool.Description = desc
		}
		tools = append(tools, tool)
	}
	set.Tools = tools
	return set, nil
}
