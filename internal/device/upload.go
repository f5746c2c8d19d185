package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"chordd/internal/serialport"
)

// Uploader reflashes the firmware and recovers the serial identity the
// device comes back under. The zero value is not usable; NewUploader wires
// the real registry, touch, and flasher.
//
// The windows mirror the bootloader's behavior: it enumerates within a few
// seconds of the touch reset and quits back to the sketch almost
// immediately after a successful flash.
type Uploader struct {
	BootloaderWait time.Duration // how long a new port may take to appear
	SketchWait     time.Duration // how long the sketch port may take to return
	PollInterval   time.Duration // registry polling cadence
	FlashTimeout   time.Duration // hard limit on the flasher subprocess

	registry func() ([]serialport.Port, error)
	touch    func(serialport.Port) error
	flash    func(ctx context.Context, port serialport.Port) error
}

// NewUploader returns an Uploader bound to the host's serial registry and
// the external avrdude flasher.
func NewUploader() *Uploader {
	u := &Uploader{
		BootloaderWait: 10 * time.Second,
		SketchWait:     2 * time.Second,
		PollInterval:   100 * time.Millisecond,
		FlashTimeout:   60 * time.Second,
		registry:       serialport.Enumerate,
		touch:          touchReset,
	}
	u.flash = u.runFlasher
	return u
}

// Upload is the one-shot convenience wrapper around NewUploader.
func Upload(port serialport.Port) (serialport.Port, error) {
	return NewUploader().Upload(port)
}

// Upload performs the full handshake: snapshot the registry, drop the
// device into its bootloader, find the bootloader's port, flash, and wait
// for the sketch identity to come back. The returned port is wherever the
// device can be addressed afterwards.
func (u *Uploader) Upload(port serialport.Port) (serialport.Port, error) {
	slog.Info("preparing to upload the firmware", "port", port)

	target := port
	if use1200bpsTouch {
		before, err := u.registry()
		if err != nil {
			return "", fmt.Errorf("device: snapshot ports before touch: %w", err)
		}
		if err := u.touch(port); err != nil {
			return "", err
		}
		if waitForUploadPort {
			if fresh, ok := u.waitForBootloader(before); ok {
				target = fresh
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), u.FlashTimeout)
	defer cancel()
	if err := u.flash(ctx, target); err != nil {
		return "", err
	}
	slog.Info("upload succeeded")

	if waitForUploadPort && u.waitForSketch(port) {
		return port, nil
	}
	// The device may well be running the new firmware on the bootloader's
	// identity; keep addressing it there.
	return target, nil
}

// waitForBootloader polls the registry for a port absent from the pre-touch
// snapshot. Timing out is not an error: the caller falls back to the
// original port.
func (u *Uploader) waitForBootloader(before []serialport.Port) (serialport.Port, bool) {
	slog.Info("waiting for the bootloader port")
	deadline := time.Now().Add(u.BootloaderWait)
	for time.Now().Before(deadline) {
		after, err := u.registry()
		if err != nil {
			slog.Warn("port enumeration failed while waiting for the bootloader", "error", err)
		} else if fresh := serialport.Diff(before, after); len(fresh) > 0 {
			slog.Info("bootloader port found", "port", fresh[0])
			return fresh[0], true
		} else {
			before = after
		}
		time.Sleep(u.PollInterval)
	}
	slog.Warn("timed out waiting for the bootloader port")
	return "", false
}

// waitForSketch polls for the original port name to reappear after the
// flash (the sketch restarting under its usual identity).
func (u *Uploader) waitForSketch(port serialport.Port) bool {
	slog.Info("waiting for the sketch port", "port", port)
	deadline := time.Now().Add(u.SketchWait)
	for time.Now().Before(deadline) {
		ports, err := u.registry()
		if err == nil && serialport.Contains(ports, port) {
			slog.Info("sketch port found", "port", port)
			return true
		}
		time.Sleep(u.PollInterval)
	}
	slog.Warn("timed out waiting for the sketch port")
	return false
}

// touchReset opens the port at the touch rate and drops DTR, which the
// board's USB stack interprets as "enter the bootloader".
func touchReset(port serialport.Port) error {
	slog.Info("resetting the device into its bootloader", "port", port)
	conn, err := port.Open(touchBaud)
	if err != nil {
		return &IOError{Op: "touch reset", Err: err}
	}
	defer conn.Close()

	if err := conn.SetDTR(false); err != nil {
		return &IOError{Op: "touch reset", Err: err}
	}
	return nil
}

// runFlasher writes the embedded image and flasher configuration to a temp
// directory and invokes avrdude against the resolved port.
func (u *Uploader) runFlasher(ctx context.Context, port serialport.Port) error {
	dir, err := os.MkdirTemp("", "chordd-upload-*")
	if err != nil {
		return fmt.Errorf("device: create upload temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	confPath := filepath.Join(dir, "avrdude.conf")
	if err := os.WriteFile(confPath, flasherConfig, 0o600); err != nil {
		return fmt.Errorf("device: write flasher config: %w", err)
	}
	imagePath := filepath.Join(dir, "firmware.hex")
	if err := os.WriteFile(imagePath, firmwareImage, 0o600); err != nil {
		return fmt.Errorf("device: write firmware image: %w", err)
	}

	cmd := exec.CommandContext(ctx, "avrdude",
		"-v", "-v",
		"-C", confPath,
		"-p", flasherMCU,
		"-c", flasherProtocol,
		"-P", port.String(),
		"-b", fmt.Sprintf("%d", flasherSpeed),
		"-D",
		fmt.Sprintf("-Uflash:w:%s:i", imagePath),
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("device: pipe flasher output: %w", err)
	}

	slog.Info("starting the flasher", "port", port)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("device: start flasher: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Debug("avrdude", "line", scanner.Text())
		}
	}()

	err = cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return ErrUploadTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &UploadError{ExitCode: exitErr.ExitCode()}
		}
		return fmt.Errorf("device: wait for flasher: %w", err)
	}
	return nil
}
