package pipeshell

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StageDefinition is one stage of a pipeline file.
type StageDefinition struct {
	Command    string         `yaml:"command"`
	Flags      map[string]yaml.Node `yaml:"flags,omitempty"`
	Positional []string       `yaml:"args,omitempty"`
}

// PipelineDefinition is the YAML form of a named pipeline. Either Pipeline
// (pipeline syntax) or Stages is set.
type PipelineDefinition struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Pipeline    string             `yaml:"pipeline,omitempty"`
	Stages      []*StageDefinition `yaml:"stages,omitempty"`
}

// Build validates the definition and returns its Pipeline.
func (d *PipelineDefinition) Build() (Pipeline, error) {
	if d.Pipeline != "" && len(d.Stages) > 0 {
		return nil, fmt.Errorf("pipeline %q: set either pipeline or stages, not both", d.Name)
	}
	if d.Pipeline != "" {
		return ParsePipeline(d.Pipeline)
	}
	pipeline := make(Pipeline, 0, len(d.Stages))
	for i, stage := range d.Stages {
		if stage == nil || stage.Command == "" {
			return nil, fmt.Errorf("pipeline %q: stage %d: command required", d.Name, i)
		}
		args := Args{positional: append([]string(nil), stage.Positional...)}
		for name, value := range stage.Flags {
			if name == "" || name == PositionalKey {
				return nil, fmt.Errorf("pipeline %q: stage %d: invalid flag name %q", d.Name, i, name)
			}
			values, err := flagValues(&value)
			if err != nil {
				return nil, fmt.Errorf("pipeline %q: stage %d: flag %q: %w", d.Name, i, name, err)
			}
			for _, v := range values {
				args.add(name, v)
			}
		}
		if len(args.positional) == 0 {
			args.positional = nil
		}
		pipeline = append(pipeline, Invocation{Name: stage.Command, Args: args})
	}
	return pipeline, nil
}

// flagValues returns the source text of scalar nodes, so values such as
// 010, 0x1F or 1.50 reach the command exactly as written.
func flagValues(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return flagValues(node.Alias)
	case yaml.ScalarNode:
		if node.Tag == "!!null" && (node.Value == "" || node.Value == "~" || node.Value == "null") {
			return []string{"true"}, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, elem := range node.Content {
			if elem.Kind == yaml.SequenceNode {
				return nil, fmt.Errorf("nested lists are not supported")
			}
			values, err := flagValues(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	case 0:
		return []string{"true"}, nil
	default:
		return nil, fmt.Errorf("nested mappings are not supported")
	}
}

// LoadPipelineFile loads a pipeline definition from a YAML file
func LoadPipelineFile(path string) (*PipelineDefinition, Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return LoadPipelineString(string(data))
}

// LoadPipelineString loads a pipeline definition from a YAML string
func LoadPipelineString(data string) (*PipelineDefinition, Pipeline, error) {
	var def PipelineDefinition
	if err := yaml.Unmarshal([]byte(data), &def); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal pipeline file: %w", err)
	}
	pipeline, err := def.Build()
	if err != nil {
		return nil, nil, err
	}
	return &def, pipeline, nil
}
