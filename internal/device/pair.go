package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// PairingSession holds the credentials for a wireless-debugging pairing
// attempt. Android shows a matching entry under "Pair device with QR code"
// when the QR encodes the WIFI:T:ADB format below.
type PairingSession struct {
	Name     string
	Password string
}

// NewPairingSession creates a session with a fresh service name and password.
func NewPairingSession() PairingSession {
	return PairingSession{
		Name:     "handroid-" + uuid.New().String()[:8],
		Password: uuid.New().String()[:8],
	}
}

// payload encodes the pairing credentials in the format Android's
// wireless-debugging scanner expects.
func (s PairingSession) payload() string {
	return fmt.Sprintf("WIFI:T:ADB;S:%s;P:%s;;", s.Name, s.Password)
}

// QRPNG renders the pairing QR code as a PNG of the given edge size.
func (s PairingSession) QRPNG(size int) ([]byte, error) {
	return qrcode.Encode(s.payload(), qrcode.Medium, size)
}

// QRTerminal renders the pairing QR code as a text block for terminal
// display.
func (s PairingSession) QRTerminal() (string, error) {
	qr, err := qrcode.New(s.payload(), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}

// Pair completes pairing against the host:port shown on the phone once the
// QR has been scanned.
func Pair(ctx context.Context, runner Runner, hostPort, password string) (string, error) {
	out, err := runner.Run(ctx, "pair", hostPort, password)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DeviceInfo is one row of the connected-device listing.
type DeviceInfo struct {
	Serial string
	State  string
	Model  string
}

// ListDevices returns the devices known to the adb server.
func ListDevices(ctx context.Context, runner Runner) ([]DeviceInfo, error) {
	out, err := runner.Run(ctx, "devices", "-l")
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		info := DeviceInfo{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			if strings.HasPrefix(f, "model:") {
				info.Model = strings.TrimPrefix(f, "model:")
			}
		}
		devices = append(devices, info)
	}
	return devices, nil
}
