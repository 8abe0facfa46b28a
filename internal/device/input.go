package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SwipeDirection is a cardinal swipe direction.
type SwipeDirection string

const (
	SwipeUp    SwipeDirection = "up"
	SwipeDown  SwipeDirection = "down"
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// buttonKeycodes maps logical button names to Android keycodes.
var buttonKeycodes = map[string]string{
	"BACK":        "KEYCODE_BACK",
	"HOME":        "KEYCODE_HOME",
	"VOLUME_UP":   "KEYCODE_VOLUME_UP",
	"VOLUME_DOWN": "KEYCODE_VOLUME_DOWN",
	"ENTER":       "KEYCODE_ENTER",
	"DPAD_CENTER": "KEYCODE_DPAD_CENTER",
	"DPAD_UP":     "KEYCODE_DPAD_UP",
	"DPAD_DOWN":   "KEYCODE_DPAD_DOWN",
	"DPAD_LEFT":   "KEYCODE_DPAD_LEFT",
	"DPAD_RIGHT":  "KEYCODE_DPAD_RIGHT",
}

// Buttons returns the supported logical button names.
func Buttons() []string {
	names := make([]string, 0, len(buttonKeycodes))
	for name := range buttonKeycodes {
		names = append(names, name)
	}
	return names
}

// Tap taps the screen at (x, y).
func (d *Device) Tap(ctx context.Context, x, y int) error {
	_, err := d.adb(ctx, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// LongPress holds a touch at (x, y) for 500ms.
func (d *Device) LongPress(ctx context.Context, x, y int) error {
	_, err := d.adb(ctx, "shell", "input", "touchscreen", "swipe",
		strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(x), strconv.Itoa(y), "500")
	return err
}

// PressButton presses a logical button (BACK, HOME, ENTER, ...).
func (d *Device) PressButton(ctx context.Context, button string) error {
	keycode, ok := buttonKeycodes[strings.ToUpper(button)]
	if !ok {
		return fmt.Errorf("unsupported button %q", button)
	}
	_, err := d.adb(ctx, "shell", "input", "keyevent", keycode)
	return err
}

// Swipe performs a full-screen swipe in the given direction, spanning from
// 20% to 80% of the screen along the swipe axis over one second.
func (d *Device) Swipe(ctx context.Context, direction SwipeDirection) error {
	width, height, err := d.ScreenSize(ctx)
	if err != nil {
		return err
	}

	var x0, y0, x1, y1 int
	centerX := width / 2
	centerY := height / 2
	switch direction {
	case SwipeUp:
		x0, x1 = centerX, centerX
		y0, y1 = height*80/100, height*20/100
	case SwipeDown:
		x0, x1 = centerX, centerX
		y0, y1 = height*20/100, height*80/100
	case SwipeLeft:
		x0, x1 = width*80/100, width*20/100
		y0, y1 = centerY, centerY
	case SwipeRight:
		x0, x1 = width*20/100, width*80/100
		y0, y1 = centerY, centerY
	default:
		return fmt.Errorf("unsupported swipe direction %q", direction)
	}

	_, err = d.adb(ctx, "shell", "input", "swipe",
		strconv.Itoa(x0), strconv.Itoa(y0), strconv.Itoa(x1), strconv.Itoa(y1), "1000")
	return err
}

// SwipeFrom swipes from (x, y) in the given direction. distance <= 0 uses
// 30% of the screen along the swipe axis. The end point is clamped to the
// screen.
func (d *Device) SwipeFrom(ctx context.Context, x, y int, direction SwipeDirection, distance int) error {
	width, height, err := d.ScreenSize(ctx)
	if err != nil {
		return err
	}

	distX, distY := distance, distance
	if distance <= 0 {
		distX = width * 30 / 100
		distY = height * 30 / 100
	}

	x0, y0 := x, y
	x1, y1 := x, y
	switch direction {
	case SwipeUp:
		y1 = max(0, y-distY)
	case SwipeDown:
		y1 = min(height, y+distY)
	case SwipeLeft:
		x1 = max(0, x-distX)
	case SwipeRight:
		x1 = min(width, x+distX)
	default:
		return fmt.Errorf("unsupported swipe direction %q", direction)
	}

	_, err = d.adb(ctx, "shell", "input", "swipe",
		strconv.Itoa(x0), strconv.Itoa(y0), strconv.Itoa(x1), strconv.Itoa(y1), "1000")
	return err
}

// InputText types text into the focused field. ASCII goes through input
// text with spaces escaped; other text goes through the clipboard helper
// when installed.
func (d *Device) InputText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if isASCII(text) {
		escaped := strings.ReplaceAll(text, " ", `\ `)
		_, err := d.adb(ctx, "shell", "input", "text", escaped)
		return err
	}

	if !d.hasClipper {
		return fmt.Errorf("non-ASCII input requires the %s helper app", clipperPackage)
	}
	if _, err := d.adb(ctx, "shell", "am", "startservice", clipperPackage+"/.ClipboardService"); err != nil {
		return err
	}
	if _, err := d.adb(ctx, "shell", "am", "broadcast", "-a", "clipper.set", "-e", "text", `"`+text+`"`); err != nil {
		return err
	}
	_, err := d.adb(ctx, "shell", "input", "keyevent", "KEYCODE_PASTE")
	return err
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// SetOrientation locks the screen to portrait or landscape, disabling
// auto-rotation first.
func (d *Device) SetOrientation(ctx context.Context, orientation string) error {
	var value string
	switch orientation {
	case "portrait":
		value = "0"
	case "landscape":
		value = "1"
	default:
		return fmt.Errorf("unsupported orientation %q", orientation)
	}

	if _, err := d.adb(ctx, "shell", "settings", "put", "system", "accelerometer_rotation", "0"); err != nil {
		return err
	}
	_, err := d.adb(ctx, "shell", "content", "insert", "--uri", "content://settings/system",
		"--bind", "name:s:user_rotation", "--bind", "value:i:"+value)
	return err
}

// Orientation reports the current screen orientation.
func (d *Device) Orientation(ctx context.Context) (string, error) {
	out, err := d.adb(ctx, "shell", "settings", "get", "system", "user_rotation")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "0" {
		return "portrait", nil
	}
	return "landscape", nil
}
