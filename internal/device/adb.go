// Package device drives an Android phone over adb: input injection, app
// lifecycle, UI hierarchy dumps, and model-assisted screen-state queries.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Runner executes one adb invocation and returns its stdout. The production
// implementation shells out to the adb binary; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// execRunner runs the adb binary via os/exec.
type execRunner struct {
	adbPath string
	timeout time.Duration
}

// NewRunner returns a Runner that invokes the adb binary at adbPath.
func NewRunner(adbPath string) Runner {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &execRunner{adbPath: adbPath, timeout: 30 * time.Second}
}

func (r *execRunner) Run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.adbPath, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("adb %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

// Device is one connected phone, addressed by serial.
type Device struct {
	serial string
	runner Runner
	logger *slog.Logger

	// hasClipper is set at construction when the clipper helper app is
	// installed; it enables non-ASCII text input via the clipboard.
	hasClipper bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) { d.logger = logger }
}

// New binds a Device to the phone with the given serial. It probes the
// installed package list once to detect the clipboard helper; probe failures
// are logged and leave clipboard input disabled.
func New(serial string, runner Runner, opts ...Option) *Device {
	d := &Device{
		serial: serial,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	pkgs, err := d.ListPackages(context.Background())
	if err != nil {
		d.logger.Warn("package probe failed", "serial", serial, "error", err)
		return d
	}
	for _, p := range pkgs {
		if p == clipperPackage {
			d.hasClipper = true
			break
		}
	}
	return d
}

const clipperPackage = "ca.zgrs.clipper"

// Serial returns the device serial.
func (d *Device) Serial() string {
	return d.serial
}

// adb runs one adb command against this device.
func (d *Device) adb(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-s", d.serial}, args...)
	out, err := d.runner.Run(ctx, full...)
	if err != nil {
		d.logger.Debug("adb command failed", "serial", d.serial, "args", args, "error", err)
	}
	return out, err
}

var screenSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

// ScreenSize returns the screen dimensions in pixels.
func (d *Device) ScreenSize(ctx context.Context) (width, height int, err error) {
	out, err := d.adb(ctx, "shell", "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	m := screenSizeRe.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("cannot parse screen size from %q", strings.TrimSpace(out))
	}
	fmt.Sscanf(m[1], "%d", &width)
	fmt.Sscanf(m[2], "%d", &height)
	return width, height, nil
}

// SystemFeatures returns the device feature list.
func (d *Device) SystemFeatures(ctx context.Context) ([]string, error) {
	out, err := d.adb(ctx, "shell", "pm", "list", "features")
	if err != nil {
		return nil, err
	}
	var features []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "feature:") {
			features = append(features, strings.TrimPrefix(line, "feature:"))
		}
	}
	return features, nil
}

// ListPackages returns all installed package names.
func (d *Device) ListPackages(ctx context.Context) ([]string, error) {
	out, err := d.adb(ctx, "shell", "pm", "list", "packages")
	if err != nil {
		return nil, err
	}
	var packages []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package:") {
			packages = append(packages, strings.TrimPrefix(line, "package:"))
		}
	}
	return packages, nil
}

// ListApps returns the package names of all launcher-launchable apps,
// deduplicated in first-seen order.
func (d *Device) ListApps(ctx context.Context) ([]string, error) {
	out, err := d.adb(ctx, "shell", "cmd", "package", "query-activities",
		"-a", "android.intent.action.MAIN",
		"-c", "android.intent.category.LAUNCHER")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var apps []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "packageName=") {
			continue
		}
		pkg := strings.TrimPrefix(line, "packageName=")
		if pkg != "" && !seen[pkg] {
			seen[pkg] = true
			apps = append(apps, pkg)
		}
	}
	return apps, nil
}

// RunningProcesses returns the names of user-owned running processes.
func (d *Device) RunningProcesses(ctx context.Context) ([]string, error) {
	out, err := d.adb(ctx, "shell", "ps", "-e")
	if err != nil {
		return nil, err
	}
	var processes []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "u") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 8 {
			processes = append(processes, fields[8])
		}
	}
	return processes, nil
}

// LaunchApp starts an app. pkg may be a bare package name or a
// "package/Activity" component. Resolution order for bare packages:
// resolve-activity, then query-activities, then a monkey fallback.
func (d *Device) LaunchApp(ctx context.Context, pkg string) (string, error) {
	if pkg == "" {
		return "", fmt.Errorf("no package name given")
	}

	if strings.Contains(pkg, "/") {
		if _, err := d.adb(ctx, "shell", "am", "start", "--user", "0", "-n", pkg); err != nil {
			return "", err
		}
		return fmt.Sprintf("component %s started", pkg), nil
	}

	installed, err := d.adb(ctx, "shell", "pm", "list", "packages", pkg)
	if err != nil {
		return "", err
	}
	if !strings.Contains(installed, "package:"+pkg) {
		return "", fmt.Errorf("%s is not installed", pkg)
	}

	component := d.resolveLaunchComponent(ctx, pkg)
	if component != "" {
		if _, err := d.adb(ctx, "shell", "am", "start", "--user", "0", "-n", component); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s started (%s)", pkg, component), nil
	}

	// Some ROMs expose no resolvable main activity; monkey still launches.
	if _, err := d.adb(ctx, "shell", "monkey", "-p", pkg,
		"-c", "android.intent.category.LAUNCHER", "1"); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s started via monkey", pkg), nil
}

// resolveLaunchComponent finds the main launcher activity for pkg, returning
// "" when none can be resolved.
func (d *Device) resolveLaunchComponent(ctx context.Context, pkg string) string {
	out, err := d.adb(ctx, "shell", "cmd", "package", "resolve-activity", "--brief",
		"-a", "android.intent.action.MAIN",
		"-c", "android.intent.category.LAUNCHER", pkg)
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if strings.Contains(line, "/") && !strings.HasPrefix(strings.ToLower(line), "no activity") {
				return line
			}
		}
	}

	// Older devices: walk the full launcher activity list.
	out, err = d.adb(ctx, "shell", "cmd", "package", "query-activities",
		"-a", "android.intent.action.MAIN",
		"-c", "android.intent.category.LAUNCHER")
	if err != nil {
		return ""
	}
	var curPkg string
	for _, raw := range strings.Split(out, "\n") {
		s := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(s, "packageName="):
			curPkg = strings.TrimPrefix(s, "packageName=")
		case strings.HasPrefix(s, "package="):
			curPkg = strings.TrimPrefix(s, "package=")
		case (strings.HasPrefix(s, "name=") || strings.HasPrefix(s, "name:")) && curPkg == pkg:
			name := strings.TrimSpace(s[len("name="):])
			if strings.Contains(name, "/") {
				return name
			}
			return pkg + "/" + name
		}
	}
	return ""
}

// TerminateApp force-stops an app.
func (d *Device) TerminateApp(ctx context.Context, pkg string) error {
	_, err := d.adb(ctx, "shell", "am", "force-stop", pkg)
	return err
}
