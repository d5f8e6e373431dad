//go:build windows

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// sFalse is returned by CoInitializeEx when COM is already initialized on
// the calling thread.
const sFalse = 0x00000001

// endpointVolume controls the master volume of the default render endpoint
// through the Core Audio IAudioEndpointVolume interface.
type endpointVolume struct {
	logger *slog.Logger
}

func newEndpointVolume(logger *slog.Logger) (VolumeAccessor, error) {
	return &endpointVolume{logger: logger}, nil
}

func (v *endpointVolume) GetVolume(ctx context.Context) (int, error) {
	var percent int
	err := withEndpoint(func(aev *wca.IAudioEndpointVolume) error {
		var level float32
		if err := aev.GetMasterVolumeLevelScalar(&level); err != nil {
			return fmt.Errorf("get master volume: %w", err)
		}
		percent = scalarToPercent(level)
		return nil
	})
	return percent, err
}

func (v *endpointVolume) SetVolume(ctx context.Context, volume int) (int, error) {
	scalar := percentToScalar(volume)
	err := withEndpoint(func(aev *wca.IAudioEndpointVolume) error {
		if err := aev.SetMasterVolumeLevelScalar(scalar, nil); err != nil {
			return fmt.Errorf("set master volume: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	v.logger.Debug("endpoint volume set", "scalar", scalar)
	return v.GetVolume(ctx)
}

// withEndpoint activates IAudioEndpointVolume on the default console render
// device for the duration of fn. COM state is bound to the OS thread, so the
// goroutine is locked to it until the interfaces are released.
func withEndpoint(fn func(aev *wca.IAudioEndpointVolume) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return fmt.Errorf("initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return fmt.Errorf("create device enumerator: %w", err)
	}
	defer mmde.Release()

	var mmd *wca.IMMDevice
	if err := mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &mmd); err != nil {
		return fmt.Errorf("get default audio endpoint: %w", err)
	}
	defer mmd.Release()

	var aev *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return fmt.Errorf("activate endpoint volume: %w", err)
	}
	defer aev.Release()

	return fn(aev)
}
