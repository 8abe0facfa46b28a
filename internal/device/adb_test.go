package device

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// fakeRunner records adb invocations and delegates output to handler. Each
// args slice includes the "-s <serial>" prefix added by Device.adb.
type fakeRunner struct {
	calls   [][]string
	handler func(args []string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	if f.handler == nil {
		return "", nil
	}
	return f.handler(args)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDevice(handler func(args []string) (string, error)) (*Device, *fakeRunner) {
	runner := &fakeRunner{handler: handler}
	d := &Device{serial: "emulator-5554", runner: runner, logger: discardLogger()}
	return d, runner
}

// joined flattens a recorded call for substring assertions.
func joined(call []string) string {
	return strings.Join(call, " ")
}

func TestScreenSize(t *testing.T) {
	d, _ := testDevice(func(args []string) (string, error) {
		return "Physical size: 1080x2400\n", nil
	})
	w, h, err := d.ScreenSize(context.Background())
	if err != nil {
		t.Fatalf("ScreenSize: %v", err)
	}
	if w != 1080 || h != 2400 {
		t.Errorf("got %dx%d, want 1080x2400", w, h)
	}
}

func TestListPackages(t *testing.T) {
	d, runner := testDevice(func(args []string) (string, error) {
		return "package:com.android.settings\npackage:com.tencent.mm\n\n", nil
	})
	pkgs, err := d.ListPackages(context.Background())
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(pkgs) != 2 || pkgs[0] != "com.android.settings" || pkgs[1] != "com.tencent.mm" {
		t.Errorf("unexpected packages: %v", pkgs)
	}
	if got := joined(runner.calls[0]); got != "-s emulator-5554 shell pm list packages" {
		t.Errorf("unexpected adb invocation: %q", got)
	}
}

func TestListAppsDeduplicates(t *testing.T) {
	d, _ := testDevice(func(args []string) (string, error) {
		return strings.Join([]string{
			"Activity Resolver Table:",
			"  packageName=com.a",
			"  packageName=com.b",
			"  packageName=com.a",
		}, "\n"), nil
	})
	apps, err := d.ListApps(context.Background())
	if err != nil {
		t.Fatalf("ListApps: %v", err)
	}
	if len(apps) != 2 || apps[0] != "com.a" || apps[1] != "com.b" {
		t.Errorf("expected deduplicated [com.a com.b], got %v", apps)
	}
}

func TestLaunchAppComponentDirect(t *testing.T) {
	d, runner := testDevice(nil)
	msg, err := d.LaunchApp(context.Background(), "com.a/.MainActivity")
	if err != nil {
		t.Fatalf("LaunchApp: %v", err)
	}
	if !strings.Contains(msg, "com.a/.MainActivity") {
		t.Errorf("unexpected message: %q", msg)
	}
	if got := joined(runner.calls[0]); !strings.Contains(got, "am start --user 0 -n com.a/.MainActivity") {
		t.Errorf("unexpected invocation: %q", got)
	}
}

func TestLaunchAppNotInstalled(t *testing.T) {
	d, _ := testDevice(func(args []string) (string, error) {
		return "", nil // pm list packages: no match
	})
	if _, err := d.LaunchApp(context.Background(), "com.missing"); err == nil {
		t.Error("expected error for missing package")
	}
}

func TestLaunchAppResolveActivity(t *testing.T) {
	d, runner := testDevice(func(args []string) (string, error) {
		cmd := joined(args)
		switch {
		case strings.Contains(cmd, "pm list packages"):
			return "package:com.a\n", nil
		case strings.Contains(cmd, "resolve-activity"):
			return "com.a/.MainActivity\n", nil
		}
		return "", nil
	})
	msg, err := d.LaunchApp(context.Background(), "com.a")
	if err != nil {
		t.Fatalf("LaunchApp: %v", err)
	}
	if !strings.Contains(msg, "com.a/.MainActivity") {
		t.Errorf("resolved component not reported: %q", msg)
	}
	last := joined(runner.calls[len(runner.calls)-1])
	if !strings.Contains(last, "am start --user 0 -n com.a/.MainActivity") {
		t.Errorf("component not started: %q", last)
	}
}

func TestLaunchAppQueryActivitiesFallback(t *testing.T) {
	d, _ := testDevice(func(args []string) (string, error) {
		cmd := joined(args)
		switch {
		case strings.Contains(cmd, "pm list packages"):
			return "package:com.a\n", nil
		case strings.Contains(cmd, "resolve-activity"):
			return "No activity found\n", nil
		case strings.Contains(cmd, "query-activities"):
			return "packageName=com.other\nname=.Other\npackageName=com.a\nname=.Main\n", nil
		}
		return "", nil
	})
	msg, err := d.LaunchApp(context.Background(), "com.a")
	if err != nil {
		t.Fatalf("LaunchApp: %v", err)
	}
	if !strings.Contains(msg, "com.a/.Main") {
		t.Errorf("fallback component not used: %q", msg)
	}
}

func TestLaunchAppMonkeyFallback(t *testing.T) {
	d, runner := testDevice(func(args []string) (string, error) {
		cmd := joined(args)
		if strings.Contains(cmd, "pm list packages") {
			return "package:com.a\n", nil
		}
		return "", nil
	})
	msg, err := d.LaunchApp(context.Background(), "com.a")
	if err != nil {
		t.Fatalf("LaunchApp: %v", err)
	}
	if !strings.Contains(msg, "monkey") {
		t.Errorf("monkey fallback not reported: %q", msg)
	}
	last := joined(runner.calls[len(runner.calls)-1])
	if !strings.Contains(last, "monkey -p com.a") {
		t.Errorf("monkey not invoked: %q", last)
	}
}

func TestSwipeComputesCoordinates(t *testing.T) {
	d, runner := testDevice(func(args []string) (string, error) {
		if strings.Contains(joined(args), "wm size") {
			return "Physical size: 1000x2000\n", nil
		}
		return "", nil
	})
	if err := d.Swipe(context.Background(), SwipeUp); err != nil {
		t.Fatalf("Swipe: %v", err)
	}
	last := joined(runner.calls[len(runner.calls)-1])
	if !strings.Contains(last, "input swipe 500 1600 500 400 1000") {
		t.Errorf("unexpected swipe coordinates: %q", last)
	}
}

func TestSwipeFromClampsToScreen(t *testing.T) {
	d, runner := testDevice(func(args []string) (string, error) {
		if strings.Contains(joined(args), "wm size") {
			return "Physical size: 1000x2000\n", nil
		}
		return "", nil
	})
	if err := d.SwipeFrom(context.Background(), 100, 100, SwipeUp, 500); err != nil {
		t.Fatalf("SwipeFrom: %v", err)
	}
	last := joined(runner.calls[len(runner.calls)-1])
	if !strings.Contains(last, "input swipe 100 100 100 0 1000") {
		t.Errorf("end point not clamped to screen: %q", last)
	}
}

func TestSwipeUnknownDirection(t *testing.T) {
	d, _ := testDevice(func(args []string) (string, error) {
		return "Physical size: 1000x2000\n", nil
	})
	if err := d.Swipe(context.Background(), "diagonal"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestInputTextEscapesSpaces(t *testing.T) {
	d, runner := testDevice(nil)
	if err := d.InputText(context.Background(), "hello world"); err != nil {
		t.Fatalf("InputText: %v", err)
	}
	last := runner.calls[len(runner.calls)-1]
	if got := last[len(last)-1]; got != `hello\ world` {
		t.Errorf("spaces not escaped: %q", got)
	}
}

func TestInputTextNonASCIIWithoutClipper(t *testing.T) {
	d, _ := testDevice(nil)
	if err := d.InputText(context.Background(), "你好"); err == nil {
		t.Error("expected error for non-ASCII input without clipboard helper")
	}
}

func TestInputTextNonASCIIWithClipper(t *testing.T) {
	d, runner := testDevice(nil)
	d.hasClipper = true
	if err := d.InputText(context.Background(), "你好"); err != nil {
		t.Fatalf("InputText: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected startservice, broadcast, and paste, got %d calls", len(runner.calls))
	}
	if !strings.Contains(joined(runner.calls[2]), "KEYCODE_PASTE") {
		t.Errorf("paste key not sent: %q", joined(runner.calls[2]))
	}
}

func TestPressButton(t *testing.T) {
	d, runner := testDevice(nil)
	if err := d.PressButton(context.Background(), "back"); err != nil {
		t.Fatalf("PressButton: %v", err)
	}
	if !strings.Contains(joined(runner.calls[0]), "KEYCODE_BACK") {
		t.Errorf("keycode not sent: %q", joined(runner.calls[0]))
	}
	if err := d.PressButton(context.Background(), "TURBO"); err == nil {
		t.Error("expected error for unknown button")
	}
}

func TestOrientation(t *testing.T) {
	d, _ := testDevice(func(args []string) (string, error) {
		return "0\n", nil
	})
	got, err := d.Orientation(context.Background())
	if err != nil {
		t.Fatalf("Orientation: %v", err)
	}
	if got != "portrait" {
		t.Errorf("got %q, want portrait", got)
	}
}

func TestListDevices(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) (string, error) {
		return strings.Join([]string{
			"List of devices attached",
			"emulator-5554          device product:sdk model:Pixel_6 device:emu64a",
			"192.168.1.20:5555      offline",
			"",
		}, "\n"), nil
	}}
	devices, err := ListDevices(context.Background(), runner)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Serial != "emulator-5554" || devices[0].Model != "Pixel_6" {
		t.Errorf("unexpected first device: %+v", devices[0])
	}
	if devices[1].State != "offline" {
		t.Errorf("unexpected second device: %+v", devices[1])
	}
}
