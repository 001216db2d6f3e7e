package sim

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// Duration wraps time.Duration so scenario files can say "50ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"50ms\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML emits the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Event is a scripted world change applied before a given tick: fact
// writes first, then signal writes.
type Event struct {
	Tick    int                    `yaml:"tick"`
	Set     map[string]state.Value `yaml:"set,omitempty"`
	Signals map[string]float64     `yaml:"signals,omitempty"`
}

// Scenario is one self-contained simulation script: the initial world, the
// embodiment's capabilities and faults, the goal sequence, and timed
// events. The zero tick settings default to 200 ticks at 50ms.
type Scenario struct {
	Name         string                 `yaml:"name"`
	Seed         int64                  `yaml:"seed,omitempty"`
	Ticks        int                    `yaml:"ticks,omitempty"`
	TickInterval Duration               `yaml:"tick_interval,omitempty"`
	Facts        map[string]state.Value `yaml:"facts"`
	Signals      map[string]float64     `yaml:"signals,omitempty"`
	Capabilities []Capability           `yaml:"capabilities"`
	Faults       []Fault                `yaml:"faults,omitempty"`
	Goals        []goap.Goal            `yaml:"goals"`
	Events       []Event                `yaml:"events,omitempty"`
}

// DefaultTicks and DefaultTickInterval bound a scenario run when the file
// does not say otherwise.
const (
	DefaultTicks        = 200
	DefaultTickInterval = 50 * time.Millisecond
)

// ParseScenario decodes and validates a scenario. Unknown fields are
// rejected so typos fail loudly.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "decoding scenario", err)
	}
	sc.normalize()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenario reads a scenario file from disk.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND, fmt.Sprintf("scenario file %s", path), err)
		}
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, fmt.Sprintf("opening scenario file %s", path), err)
	}
	defer f.Close()
	return ParseScenario(f)
}

func (sc *Scenario) normalize() {
	if sc.Ticks <= 0 {
		sc.Ticks = DefaultTicks
	}
	if sc.TickInterval <= 0 {
		sc.TickInterval = Duration(DefaultTickInterval)
	}
}

// Validate checks the scenario is runnable.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "scenario needs a name")
	}
	if len(sc.Capabilities) == 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("scenario %q declares no capabilities", sc.Name))
	}
	for i, c := range sc.Capabilities {
		if c.Name == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("scenario %q: capability %d has no name", sc.Name, i))
		}
	}
	if len(sc.Goals) == 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("scenario %q has no goals", sc.Name))
	}
	for _, g := range sc.Goals {
		if err := g.Validate(); err != nil {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("scenario %q", sc.Name), err)
		}
	}
	for i, f := range sc.Faults {
		if f.Action == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("scenario %q: fault %d names no action", sc.Name, i))
		}
		if f.Rate < 0 || f.Rate > 1 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("scenario %q: fault for %q has rate %v outside [0,1]", sc.Name, f.Action, f.Rate))
		}
	}
	for i, ev := range sc.Events {
		if ev.Tick < 0 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("scenario %q: event %d has negative tick", sc.Name, i))
		}
	}
	return nil
}

// Build assembles the world, gateway, and supplier the scenario describes.
// The logger may be nil.
func (sc *Scenario) Build(model *action.Model, logger *slog.Logger) (*World, *Gateway, *Supplier) {
	var ec action.Context
	for name, v := range sc.Signals {
		ec = withSignal(ec, name, v)
	}
	world := NewWorld(sc.Facts, ec)
	gw := NewGateway(model, world,
		WithCapabilities(sc.Capabilities...),
		WithFaults(sc.Faults...),
		WithSeed(sc.Seed),
		WithGatewayLogger(logger))
	sup := NewSupplier(world, sc.Goals, WithSupplierLogger(logger))
	return world, gw, sup
}

// EventsAt returns the events scheduled for the given tick.
func (sc *Scenario) EventsAt(tick int) []Event {
	var out []Event
	for _, ev := range sc.Events {
		if ev.Tick == tick {
			out = append(out, ev)
		}
	}
	return out
}
