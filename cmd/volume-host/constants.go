package main

import "time"

// Command actions accepted from the browser
const (
	actionGetVolume    = "get_volume"
	actionSetVolume    = "set_volume"
	actionChangeVolume = "change_volume"
)

// Volume range (percent)
const (
	minVolume = 0
	maxVolume = 100
)

// Linux mixer targets. Only the default sink / Master control is driven.
const (
	pactlDefaultSink = "@DEFAULT_SINK@"
	amixerControl    = "Master"
)

// AppleScript one-liners for the macOS accessor
const (
	osascriptGetVolume = "output volume of (get volume settings)"
	osascriptSetVolume = "set volume output volume %d"
)

// Native messaging host registration
const (
	defaultHostName        = "com.dunkadunka.volume_host"
	defaultHostDescription = "System volume bridge for the browser"
)

// Grace period for a killed tool's output pipes to close
const toolWaitDelay = 500 * time.Millisecond

// Config file lookup
const configEnvVar = "VOLUME_HOST_CONFIG"
