//go:build !windows

package main

// registerManifest is a no-op outside Windows: the manifest directory is
// the registration.
func registerManifest(b Browser, name, manifestPath string) error {
	return nil
}
