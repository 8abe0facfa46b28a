package device

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/handroid/handroid/internal/jsonutil"
	"github.com/handroid/handroid/internal/prompts"
)

// Generator is the single-prompt model call used for screen analysis.
// *llm.Client satisfies this.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Analyzer answers questions about the screen by feeding the meaningful UI
// elements to a model.
type Analyzer struct {
	device    *Device
	generator Generator
	model     string
}

// NewAnalyzer builds an Analyzer for the given device using model for
// analysis calls.
func NewAnalyzer(d *Device, g Generator, model string) *Analyzer {
	return &Analyzer{device: d, generator: g, model: model}
}

// State answers query from the current screen contents. The result is a JSON
// document with a single "state" field holding the model's summary; downstream
// staleness tracking keys on that field name.
func (a *Analyzer) State(ctx context.Context, query string) (string, error) {
	elements, err := a.device.MeaningfulElements(ctx)
	if err != nil {
		return "", fmt.Errorf("read screen: %w", err)
	}
	dump, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("encode elements: %w", err)
	}

	answer, err := a.generator.Generate(ctx, a.model, prompts.ScreenStatePrompt(query, string(dump)))
	if err != nil {
		return "", fmt.Errorf("analyze screen: %w", err)
	}

	out, err := json.Marshal(map[string]string{"state": answer})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FindElement locates the screen coordinates of the element best matching a
// natural-language description. The model picks from the meaningful elements
// and reports the tap point.
func (a *Analyzer) FindElement(ctx context.Context, description string) (x, y int, err error) {
	elements, err := a.device.MeaningfulElements(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read screen: %w", err)
	}
	dump, err := json.Marshal(elements)
	if err != nil {
		return 0, 0, fmt.Errorf("encode elements: %w", err)
	}

	answer, err := a.generator.Generate(ctx, a.model, prompts.ElementMatchPrompt(description, string(dump)))
	if err != nil {
		return 0, 0, fmt.Errorf("match element: %w", err)
	}

	obj, err := jsonutil.ExtractObject(answer)
	if err != nil {
		return 0, 0, fmt.Errorf("parse match response: %w", err)
	}
	xv, xok := asInt(obj["x"])
	yv, yok := asInt(obj["y"])
	if !xok || !yok {
		return 0, 0, fmt.Errorf("match response missing coordinates: %v", obj)
	}
	return xv, yv, nil
}

// asInt accepts the numeric encodings a model may produce for a coordinate.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// TapElement finds the element matching description and taps it, optionally
// as a long press.
func (a *Analyzer) TapElement(ctx context.Context, description string, longPress bool) (string, error) {
	x, y, err := a.FindElement(ctx, description)
	if err != nil {
		return "", err
	}
	if longPress {
		if err := a.device.LongPress(ctx, x, y); err != nil {
			return "", err
		}
		return fmt.Sprintf("long-pressed %q at (%d, %d)", description, x, y), nil
	}
	if err := a.device.Tap(ctx, x, y); err != nil {
		return "", err
	}
	return fmt.Sprintf("tapped %q at (%d, %d)", description, x, y), nil
}
