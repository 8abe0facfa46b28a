package device

import (
	"context"
	"fmt"
	"os"
)

const remoteScreenshotPath = "/sdcard/screenshot.png"

// Screenshot captures the screen to localPath. The temporary file on the
// device is removed after the pull.
func (d *Device) Screenshot(ctx context.Context, localPath string) error {
	if _, err := d.adb(ctx, "shell", "screencap", "-p", remoteScreenshotPath); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if _, err := d.adb(ctx, "pull", remoteScreenshotPath, localPath); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("screenshot not written: %w", err)
	}
	if _, err := d.adb(ctx, "shell", "rm", remoteScreenshotPath); err != nil {
		d.logger.Warn("cleanup of remote screenshot failed", "error", err)
	}
	return nil
}
