package action

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// actionSpec is the YAML form of one action. The optional cost expression
// compiles into the action's CostFunc.
type actionSpec struct {
	Name          string                 `yaml:"name"`
	Capability    string                 `yaml:"capability"`
	BaseCost      float64                `yaml:"base_cost"`
	Cost          string                 `yaml:"cost,omitempty"`
	Params        map[string]state.Value `yaml:"params,omitempty"`
	Preconditions []state.Term           `yaml:"preconditions,omitempty"`
	Effects       []state.Term           `yaml:"effects"`
}

type setFile struct {
	Actions []actionSpec `yaml:"actions"`
}

// ParseSet decodes a YAML action set into a validated Model. Unknown fields
// are rejected so typos in action files fail loudly instead of silently
// weakening the model.
func ParseSet(data []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file setFile
	if err := dec.Decode(&file); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "action set parse failed", err)
	}
	if len(file.Actions) == 0 {
		return nil, types.NewError(types.MODEL_INVALID, "action set defines no actions")
	}

	model := NewModel()
	for _, spec := range file.Actions {
		a := Action{
			Name:          spec.Name,
			Capability:    spec.Capability,
			BaseCost:      spec.BaseCost,
			Params:        spec.Params,
			Preconditions: spec.Preconditions,
			Effects:       spec.Effects,
		}
		if spec.Cost != "" {
			fn, err := CompileCost(spec.Cost)
			if err != nil {
				return nil, types.WrapError(types.MODEL_INVALID,
					fmt.Sprintf("action %q cost expression", spec.Name), err)
			}
			a.CostFn = fn
		}
		if err := model.Register(a); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// LoadSet reads and parses an action set file.
func LoadSet(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "action set read failed", err).
			WithContext("path", path)
	}
	model, err := ParseSet(data)
	if err != nil {
		var agentErr *types.AgentError
		if errors.As(err, &agentErr) {
			return nil, agentErr.WithContext("path", path)
		}
		return nil, err
	}
	return model, nil
}
