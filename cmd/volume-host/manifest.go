package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ============================================================================
// Native Messaging Host Manifest
// ============================================================================
// Browsers locate a native host through a JSON manifest named after the
// host. On Linux and macOS the manifest lives in a per-browser directory; on
// Windows its path is registered under HKCU.
// ============================================================================

// Browser identifies a manifest flavour and install location.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserFirefox  Browser = "firefox"
)

func parseBrowser(s string) (Browser, error) {
	switch b := Browser(strings.ToLower(s)); b {
	case BrowserChrome, BrowserChromium, BrowserEdge, BrowserFirefox:
		return b, nil
	default:
		return "", fmt.Errorf("invalid browser: %s (must be chrome, chromium, edge, or firefox)", s)
	}
}

// HostManifest is the document browsers read to start the host.
// Chromium-family browsers use AllowedOrigins, Firefox uses AllowedExtensions.
type HostManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
}

var (
	hostNamePattern    = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)
	chromeExtIDPattern = regexp.MustCompile(`^[a-p]{32}$`)
)

// buildManifest validates its inputs and assembles the manifest for b.
func buildManifest(b Browser, name, hostPath string, extensionIDs []string) (HostManifest, error) {
	if !hostNamePattern.MatchString(name) {
		return HostManifest{}, fmt.Errorf("invalid host name %q: use lowercase letters, digits, underscores and dots", name)
	}
	if !filepath.IsAbs(hostPath) {
		return HostManifest{}, fmt.Errorf("host path must be absolute: %s", hostPath)
	}
	if len(extensionIDs) == 0 {
		return HostManifest{}, errors.New("at least one extension id is required")
	}

	m := HostManifest{
		Name:        name,
		Description: defaultHostDescription,
		Path:        hostPath,
		Type:        "stdio",
	}

	for _, id := range extensionIDs {
		id = strings.TrimSpace(id)
		if b == BrowserFirefox {
			if id == "" {
				return HostManifest{}, errors.New("extension id must not be empty")
			}
			m.AllowedExtensions = append(m.AllowedExtensions, id)
			continue
		}
		if !chromeExtIDPattern.MatchString(id) {
			return HostManifest{}, fmt.Errorf("invalid extension id %q: expected 32 characters a-p", id)
		}
		m.AllowedOrigins = append(m.AllowedOrigins, "chrome-extension://"+id+"/")
	}
	return m, nil
}

// manifestDir returns the per-user manifest directory for b on goos.
// On Windows the manifest is kept next to the executable and registered.
func manifestDir(goos string, b Browser, home, hostPath string) (string, error) {
	switch goos {
	case "linux":
		switch b {
		case BrowserChrome:
			return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
		case BrowserChromium:
			return filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"), nil
		case BrowserEdge:
			return filepath.Join(home, ".config", "microsoft-edge", "NativeMessagingHosts"), nil
		case BrowserFirefox:
			return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
		}
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		switch b {
		case BrowserChrome:
			return filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"), nil
		case BrowserChromium:
			return filepath.Join(support, "Chromium", "NativeMessagingHosts"), nil
		case BrowserEdge:
			return filepath.Join(support, "Microsoft Edge", "NativeMessagingHosts"), nil
		case BrowserFirefox:
			return filepath.Join(support, "Mozilla", "NativeMessagingHosts"), nil
		}
	case "windows":
		return filepath.Dir(hostPath), nil
	default:
		return "", fmt.Errorf("Unsupported OS: %s", goos)
	}
	return "", fmt.Errorf("invalid browser: %s", b)
}

// registryKeyPath is the HKCU subkey whose default value points browsers at
// the manifest on Windows.
func registryKeyPath(b Browser, name string) string {
	var vendor string
	switch b {
	case BrowserChromium:
		vendor = `Software\Chromium`
	case BrowserEdge:
		vendor = `Software\Microsoft\Edge`
	case BrowserFirefox:
		vendor = `Software\Mozilla`
	default:
		vendor = `Software\Google\Chrome`
	}
	return vendor + `\NativeMessagingHosts\` + name
}

// writeManifest writes m as <dir>/<name>.json and returns the file path.
func writeManifest(dir string, m HostManifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create manifest dir: %w", err)
	}
	path := filepath.Join(dir, m.Name+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
