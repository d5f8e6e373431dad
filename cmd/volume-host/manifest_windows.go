//go:build windows

package main

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// registerManifest points the browser at manifestPath through the
// per-user registry key.
func registerManifest(b Browser, name, manifestPath string) error {
	keyPath := registryKeyPath(b, name)
	k, _, err := registry.CreateKey(registry.CURRENT_USER, keyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create registry key %s: %w", keyPath, err)
	}
	defer k.Close()

	if err := k.SetStringValue("", manifestPath); err != nil {
		return fmt.Errorf("set registry value %s: %w", keyPath, err)
	}
	return nil
}
