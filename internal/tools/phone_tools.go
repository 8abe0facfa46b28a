package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handroid/handroid/internal/device"
)

// StateInvalidatingTools returns the phone tools whose successful
// execution changes what is on screen, so earlier screen observations
// in the history no longer describe the device.
func StateInvalidatingTools() []string {
	return []string{
		"tap_element",
		"tap",
		"long_press",
		"swipe",
		"swipe_from",
		"input_text",
		"press_key",
		"launch_app",
		"terminate_app",
		"set_orientation",
	}
}

// RegisterPhoneTools adds the device-control tools backed by d and the
// model-assisted tools backed by a.
func RegisterPhoneTools(r *Registry, d *device.Device, a *device.Analyzer) {
	r.Register(&Tool{
		Name: "phone_state",
		Description: "Analyze the current phone screen and answer a question about it. " +
			"Call this after every action to verify the expected result.",
		Parameters: objectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to determine about the current screen (e.g., 'which page is open?')",
			},
		}, "query"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}
			return a.State(ctx, query)
		},
	})

	r.Register(&Tool{
		Name: "tap_element",
		Description: "Find the on-screen element matching a natural-language description and tap it. " +
			"Set long_press to hold the touch instead.",
		Parameters: objectSchema(map[string]any{
			"description": map[string]any{
				"type":        "string",
				"description": "Description of the element to tap (e.g., 'the Wi-Fi toggle')",
			},
			"long_press": map[string]any{
				"type":        "boolean",
				"description": "Hold the touch for a long press instead of a tap",
			},
		}, "description"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			desc, err := stringArg(args, "description")
			if err != nil {
				return "", err
			}
			msg, err := a.TapElement(ctx, desc, optionalBool(args, "long_press", false))
			if err != nil {
				return "", err
			}
			state, err := a.State(ctx, fmt.Sprintf("I just tapped %q; describe the current phone state", desc))
			if err != nil {
				return msg, nil
			}
			return msg + "; current phone state: " + state, nil
		},
	})

	r.Register(&Tool{
		Name:        "tap",
		Description: "Tap the screen at exact pixel coordinates.",
		Parameters: objectSchema(map[string]any{
			"x": map[string]any{"type": "integer"},
			"y": map[string]any{"type": "integer"},
		}, "x", "y"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			x, err := intArg(args, "x")
			if err != nil {
				return "", err
			}
			y, err := intArg(args, "y")
			if err != nil {
				return "", err
			}
			if err := d.Tap(ctx, x, y); err != nil {
				return "", err
			}
			return fmt.Sprintf("tapped (%d, %d)", x, y), nil
		},
	})

	r.Register(&Tool{
		Name:        "long_press",
		Description: "Hold a touch at exact pixel coordinates for half a second.",
		Parameters: objectSchema(map[string]any{
			"x": map[string]any{"type": "integer"},
			"y": map[string]any{"type": "integer"},
		}, "x", "y"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			x, err := intArg(args, "x")
			if err != nil {
				return "", err
			}
			y, err := intArg(args, "y")
			if err != nil {
				return "", err
			}
			if err := d.LongPress(ctx, x, y); err != nil {
				return "", err
			}
			return fmt.Sprintf("long-pressed (%d, %d)", x, y), nil
		},
	})

	r.Register(&Tool{
		Name:        "swipe",
		Description: "Swipe across the whole screen in a direction (up, down, left, right).",
		Parameters: objectSchema(map[string]any{
			"direction": map[string]any{
				"type": "string",
				"enum": []string{"up", "down", "left", "right"},
			},
		}, "direction"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := stringArg(args, "direction")
			if err != nil {
				return "", err
			}
			if err := d.Swipe(ctx, device.SwipeDirection(dir)); err != nil {
				return "", err
			}
			return "swiped " + dir, nil
		},
	})

	r.Register(&Tool{
		Name:        "swipe_from",
		Description: "Swipe starting at exact coordinates in a direction, optionally with a pixel distance.",
		Parameters: objectSchema(map[string]any{
			"x": map[string]any{"type": "integer"},
			"y": map[string]any{"type": "integer"},
			"direction": map[string]any{
				"type": "string",
				"enum": []string{"up", "down", "left", "right"},
			},
			"distance": map[string]any{
				"type":        "integer",
				"description": "Swipe distance in pixels; defaults to 30% of the screen",
			},
		}, "x", "y", "direction"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			x, err := intArg(args, "x")
			if err != nil {
				return "", err
			}
			y, err := intArg(args, "y")
			if err != nil {
				return "", err
			}
			dir, err := stringArg(args, "direction")
			if err != nil {
				return "", err
			}
			if err := d.SwipeFrom(ctx, x, y, device.SwipeDirection(dir), optionalInt(args, "distance", 0)); err != nil {
				return "", err
			}
			return fmt.Sprintf("swiped %s from (%d, %d)", dir, x, y), nil
		},
	})

	r.Register(&Tool{
		Name:        "input_text",
		Description: "Type text into the currently focused input field.",
		Parameters: objectSchema(map[string]any{
			"text": map[string]any{"type": "string"},
		}, "text"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text, err := stringArg(args, "text")
			if err != nil {
				return "", err
			}
			if err := d.InputText(ctx, text); err != nil {
				return "", err
			}
			return "typed: " + text, nil
		},
	})

	r.Register(&Tool{
		Name:        "press_key",
		Description: "Press a device button: " + strings.Join(device.Buttons(), ", ") + ".",
		Parameters: objectSchema(map[string]any{
			"button": map[string]any{"type": "string"},
		}, "button"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			button, err := stringArg(args, "button")
			if err != nil {
				return "", err
			}
			if err := d.PressButton(ctx, button); err != nil {
				return "", err
			}
			return "pressed " + strings.ToUpper(button), nil
		},
	})

	r.Register(&Tool{
		Name:        "launch_app",
		Description: "Launch an app by package name or package/Activity component.",
		Parameters: objectSchema(map[string]any{
			"package_name": map[string]any{"type": "string"},
		}, "package_name"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pkg, err := stringArg(args, "package_name")
			if err != nil {
				return "", err
			}
			return d.LaunchApp(ctx, pkg)
		},
	})

	r.Register(&Tool{
		Name:        "terminate_app",
		Description: "Force-stop an app by package name.",
		Parameters: objectSchema(map[string]any{
			"package_name": map[string]any{"type": "string"},
		}, "package_name"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pkg, err := stringArg(args, "package_name")
			if err != nil {
				return "", err
			}
			if err := d.TerminateApp(ctx, pkg); err != nil {
				return "", err
			}
			return pkg + " terminated", nil
		},
	})

	r.Register(&Tool{
		Name:        "list_apps",
		Description: "List the package names of all launchable apps on the phone.",
		Parameters:  objectSchema(map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			apps, err := d.ListApps(ctx)
			if err != nil {
				return "", err
			}
			return strings.Join(apps, "\n"), nil
		},
	})

	r.Register(&Tool{
		Name:        "screen_elements",
		Description: "List the clickable elements on the current screen as JSON, with bounds for tapping.",
		Parameters:  objectSchema(map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			elements, err := d.ClickableElements(ctx)
			if err != nil {
				return "", err
			}
			out, err := json.Marshal(elements)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	})

	r.Register(&Tool{
		Name:        "orientation",
		Description: "Report the current screen orientation (portrait or landscape).",
		Parameters:  objectSchema(map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Orientation(ctx)
		},
	})

	r.Register(&Tool{
		Name:        "set_orientation",
		Description: "Lock the screen to portrait or landscape.",
		Parameters: objectSchema(map[string]any{
			"orientation": map[string]any{
				"type": "string",
				"enum": []string{"portrait", "landscape"},
			},
		}, "orientation"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			orientation, err := stringArg(args, "orientation")
			if err != nil {
				return "", err
			}
			if err := d.SetOrientation(ctx, orientation); err != nil {
				return "", err
			}
			return "orientation set to " + orientation, nil
		},
	})

	r.Register(&Tool{
		Name:        "screenshot",
		Description: "Capture the screen to a local PNG file and report its path.",
		Parameters: objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Local file path; defaults to screenshot.png",
			},
		}),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path := optionalString(args, "path")
			if path == "" {
				path = "screenshot.png"
			}
			if err := d.Screenshot(ctx, path); err != nil {
				return "", err
			}
			return "screenshot saved to " + path, nil
		},
	})
}

// objectSchema builds a JSON Schema object with the given properties and
// required names.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
