package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/handroid/handroid/internal/device"
)

const toolTestDump = `<?xml version='1.0' encoding='UTF-8'?>
<hierarchy rotation="0">
  <node class="android.widget.Switch" bounds="[900,100][1040,160]" clickable="true" text="" content-desc="Wi-Fi toggle"/>
</hierarchy>`

// scriptedRunner serves canned adb output keyed on a command substring.
type scriptedRunner struct {
	calls [][]string
}

func (s *scriptedRunner) Run(_ context.Context, args ...string) (string, error) {
	s.calls = append(s.calls, args)
	cmd := strings.Join(args, " ")
	switch {
	case strings.Contains(cmd, "exec-out uiautomator"):
		return toolTestDump, nil
	case strings.Contains(cmd, "wm size"):
		return "Physical size: 1080x2400\n", nil
	case strings.Contains(cmd, "pm list packages"):
		return "package:com.android.settings\n", nil
	case strings.Contains(cmd, "user_rotation"):
		return "0\n", nil
	}
	return "", nil
}

type cannedGenerator struct {
	response string
}

func (g *cannedGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return g.response, nil
}

func phoneRegistry(gen *cannedGenerator) (*Registry, *scriptedRunner) {
	runner := &scriptedRunner{}
	d := device.New("test-serial", runner)
	a := device.NewAnalyzer(d, gen, "check-model")
	r := NewRegistry()
	RegisterPhoneTools(r, d, a)
	return r, runner
}

func TestPhoneStateTool(t *testing.T) {
	r, _ := phoneRegistry(&cannedGenerator{response: "Settings is open."})
	out, err := r.Invoke(context.Background(), "phone_state", map[string]any{"query": "what is open?"})
	if err != nil {
		t.Fatalf("phone_state: %v", err)
	}
	if !strings.Contains(out, `"state"`) || !strings.Contains(out, "Settings is open.") {
		t.Errorf("unexpected state payload: %q", out)
	}
}

func TestPhoneStateToolMissingQuery(t *testing.T) {
	r, _ := phoneRegistry(&cannedGenerator{})
	if _, err := r.Invoke(context.Background(), "phone_state", map[string]any{}); err == nil {
		t.Error("expected error for missing query argument")
	}
}

func TestSwipeTool(t *testing.T) {
	r, runner := phoneRegistry(&cannedGenerator{})
	out, err := r.Invoke(context.Background(), "swipe", map[string]any{"direction": "up"})
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if out != "swiped up" {
		t.Errorf("unexpected result: %q", out)
	}
	last := strings.Join(runner.calls[len(runner.calls)-1], " ")
	if !strings.Contains(last, "input swipe") {
		t.Errorf("swipe not issued to the device: %q", last)
	}
}

func TestLaunchAppTool(t *testing.T) {
	r, _ := phoneRegistry(&cannedGenerator{})
	out, err := r.Invoke(context.Background(), "launch_app",
		map[string]any{"package_name": "com.android.settings"})
	if err != nil {
		t.Fatalf("launch_app: %v", err)
	}
	if !strings.Contains(out, "com.android.settings") {
		t.Errorf("unexpected result: %q", out)
	}
}

func TestTapToolCoordinates(t *testing.T) {
	r, runner := phoneRegistry(&cannedGenerator{})
	if _, err := r.Invoke(context.Background(), "tap", map[string]any{"x": float64(50), "y": float64(60)}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	last := strings.Join(runner.calls[len(runner.calls)-1], " ")
	if !strings.Contains(last, "input tap 50 60") {
		t.Errorf("tap not issued: %q", last)
	}
}

func TestPhoneToolSetComplete(t *testing.T) {
	r, _ := phoneRegistry(&cannedGenerator{})
	want := []string{
		"phone_state", "tap_element", "tap", "long_press", "swipe", "swipe_from",
		"input_text", "press_key", "launch_app", "terminate_app", "list_apps",
		"screen_elements", "orientation", "set_orientation", "screenshot",
	}
	have := make(map[string]bool)
	for _, name := range r.Names() {
		have[name] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}
