package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRunner replays canned results keyed by the full command line and
// records every invocation.
type fakeRunner struct {
	results map[string]commandResult
	errs    map[string]error
	calls   []string

	// onRun, if set, may mutate results between calls (e.g. a set changing
	// what a later get prints).
	onRun func(line string)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]commandResult),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	if f.onRun != nil {
		f.onRun(line)
	}
	if err, ok := f.errs[line]; ok {
		return commandResult{}, err
	}
	if res, ok := f.results[line]; ok {
		return res, nil
	}
	return commandResult{}, errors.New("executable file not found in $PATH")
}

func newTestMixer(run commandRunner) *linuxMixer {
	cfg := DefaultConfig()
	return &linuxMixer{
		run:    run,
		pactl:  cfg.Tools.Pactl,
		amixer: cfg.Tools.Amixer,
		logger: testLogger(),
	}
}

const (
	pactlGet  = "pactl get-sink-volume @DEFAULT_SINK@"
	amixerGet = "amixer get Master"

	pactlOutput  = "Volume: front-left: 24248 /  37% / -25.91 dB,   front-right: 24248 /  37% / -25.91 dB\n        balance 0.00\n"
	amixerOutput = "Simple mixer control 'Master',0\n  Capabilities: pvolume pswitch\n  Front Left: Playback 39321 [60%] [on]\n  Front Right: Playback 39321 [60%] [on]\n"
)

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1000, 0},
		{-1, 0},
		{0, 0},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, 100},
		{1 << 40, 100},
	}
	for _, tt := range tests {
		if got := clampPercent(tt.in); got != tt.want {
			t.Errorf("clampPercent(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Volume: 37%", 37},
		{pactlOutput, 37},
		{amixerOutput, 60},
		{"0%", 0},
		{"[100%]", 100},
		{"[150%]", 100},
		{"first 12% then 80%", 12},
	}
	for _, tt := range tests {
		got, err := parsePercent(tt.text)
		if err != nil {
			t.Errorf("parsePercent(%q): unexpected error %v", tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePercent(%q): expected %d, got %d", tt.text, tt.want, got)
		}
	}
}

func TestParsePercent_NoPattern(t *testing.T) {
	for _, text := range []string{"", "Volume: 37", "percent %", "muted"} {
		if _, err := parsePercent(text); err == nil {
			t.Errorf("parsePercent(%q): expected error", text)
		} else if !strings.Contains(err.Error(), "Could not parse volume percent") {
			t.Errorf("parsePercent(%q): unexpected error %v", text, err)
		}
	}
}

func TestScalarConversion(t *testing.T) {
	if got := scalarToPercent(0.374); got != 37 {
		t.Errorf("expected 37, got %d", got)
	}
	if got := scalarToPercent(0.375); got != 38 {
		t.Errorf("expected 38, got %d", got)
	}
	if got := scalarToPercent(1.2); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	if got := percentToScalar(150); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := percentToScalar(-5); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := percentToScalar(25); got != 0.25 {
		t.Errorf("expected 0.25, got %f", got)
	}
}

func TestLinuxMixer_GetPrefersPactl(t *testing.T) {
	run := newFakeRunner()
	run.results[pactlGet] = commandResult{Stdout: pactlOutput}
	run.results[amixerGet] = commandResult{Stdout: amixerOutput}

	got, err := newTestMixer(run).GetVolume(context.Background())
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if got != 37 {
		t.Errorf("expected 37, got %d", got)
	}
	if len(run.calls) != 1 {
		t.Errorf("expected only pactl to run, got %v", run.calls)
	}
}

func TestLinuxMixer_GetFallsBackToAmixer(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeRunner)
	}{
		{"non-zero exit", func(f *fakeRunner) {
			f.results[pactlGet] = commandResult{Stderr: "Connection failure: Connection refused", ExitCode: 1}
		}},
		{"empty output", func(f *fakeRunner) {
			f.results[pactlGet] = commandResult{}
		}},
		{"not installed", func(f *fakeRunner) {
			f.errs[pactlGet] = errors.New(`exec: "pactl": executable file not found in $PATH`)
		}},
	}
	for _, tt := range tests {
		run := newFakeRunner()
		tt.setup(run)
		run.results[amixerGet] = commandResult{Stdout: amixerOutput}

		got, err := newTestMixer(run).GetVolume(context.Background())
		if err != nil {
			t.Fatalf("%s: GetVolume: %v", tt.name, err)
		}
		if got != 60 {
			t.Errorf("%s: expected 60, got %d", tt.name, got)
		}
		if len(run.calls) != 2 || run.calls[1] != amixerGet {
			t.Errorf("%s: expected pactl then amixer, got %v", tt.name, run.calls)
		}
	}
}

func TestLinuxMixer_GetBothFail(t *testing.T) {
	run := newFakeRunner()
	run.results[pactlGet] = commandResult{ExitCode: 1}
	run.results[amixerGet] = commandResult{ExitCode: 1}

	_, err := newTestMixer(run).GetVolume(context.Background())
	if !errors.Is(err, errNoLinuxMixer) {
		t.Fatalf("expected errNoLinuxMixer, got %v", err)
	}
}

func TestLinuxMixer_GetUnparseableOutputDoesNotFallBack(t *testing.T) {
	run := newFakeRunner()
	run.results[pactlGet] = commandResult{Stdout: "Volume: unknown\n"}
	run.results[amixerGet] = commandResult{Stdout: amixerOutput}

	_, err := newTestMixer(run).GetVolume(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Could not parse volume percent") {
		t.Fatalf("expected parse error, got %v", err)
	}
	if len(run.calls) != 1 {
		t.Errorf("expected no amixer fallback, got %v", run.calls)
	}
}

func TestLinuxMixer_SetUsesPactlAndRereads(t *testing.T) {
	run := newFakeRunner()
	run.results["pactl set-sink-volume @DEFAULT_SINK@ 45%"] = commandResult{}
	run.onRun = func(line string) {
		if line == "pactl set-sink-volume @DEFAULT_SINK@ 45%" {
			run.results[pactlGet] = commandResult{Stdout: "Volume: front-left: 29491 /  45% / -20.81 dB\n"}
		}
	}

	got, err := newTestMixer(run).SetVolume(context.Background(), 45)
	if err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if got != 45 {
		t.Errorf("expected 45, got %d", got)
	}
	want := []string{"pactl set-sink-volume @DEFAULT_SINK@ 45%", pactlGet}
	if strings.Join(run.calls, "|") != strings.Join(want, "|") {
		t.Errorf("expected calls %v, got %v", want, run.calls)
	}
}

func TestLinuxMixer_SetClampsArgument(t *testing.T) {
	run := newFakeRunner()
	run.results["pactl set-sink-volume @DEFAULT_SINK@ 100%"] = commandResult{}
	run.results[pactlGet] = commandResult{Stdout: "Volume: 100%"}

	if _, err := newTestMixer(run).SetVolume(context.Background(), 180); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if run.calls[0] != "pactl set-sink-volume @DEFAULT_SINK@ 100%" {
		t.Errorf("expected clamped pactl argument, got %q", run.calls[0])
	}
}

func TestLinuxMixer_SetFallsBackToAmixer(t *testing.T) {
	run := newFakeRunner()
	run.results["pactl set-sink-volume @DEFAULT_SINK@ 20%"] = commandResult{ExitCode: 1}
	run.results["amixer set Master 20%"] = commandResult{Stdout: "Front Left: Playback 13107 [20%] [on]\n"}
	run.results[pactlGet] = commandResult{ExitCode: 1}
	run.results[amixerGet] = commandResult{Stdout: "Front Left: Playback 13107 [20%] [on]\n"}

	got, err := newTestMixer(run).SetVolume(context.Background(), 20)
	if err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestLinuxMixer_SetBothFail(t *testing.T) {
	run := newFakeRunner()
	run.results["pactl set-sink-volume @DEFAULT_SINK@ 20%"] = commandResult{ExitCode: 1}
	run.results["amixer set Master 20%"] = commandResult{ExitCode: 1}

	_, err := newTestMixer(run).SetVolume(context.Background(), 20)
	if !errors.Is(err, errLinuxSetFailed) {
		t.Fatalf("expected errLinuxSetFailed, got %v", err)
	}
	for _, call := range run.calls {
		if strings.Contains(call, "get") {
			t.Errorf("expected no re-read after failed set, got %v", run.calls)
		}
	}
}

func TestMacVolume_Get(t *testing.T) {
	run := newFakeRunner()
	run.results["osascript -e "+osascriptGetVolume] = commandResult{Stdout: "64\n"}

	got, err := (&macVolume{run: run, osascript: "osascript"}).GetVolume(context.Background())
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if got != 64 {
		t.Errorf("expected 64, got %d", got)
	}
}

func TestMacVolume_GetMissingValue(t *testing.T) {
	run := newFakeRunner()
	run.results["osascript -e "+osascriptGetVolume] = commandResult{Stdout: "missing value\n"}

	_, err := (&macVolume{run: run, osascript: "osascript"}).GetVolume(context.Background())
	if err == nil {
		t.Fatal("expected error for missing value")
	}
}

func TestMacVolume_ErrorCarriesStderr(t *testing.T) {
	run := newFakeRunner()
	run.results["osascript -e "+osascriptGetVolume] = commandResult{
		Stderr:   "execution error: Not authorized to send Apple events. (-1743)\n",
		ExitCode: 1,
	}

	_, err := (&macVolume{run: run, osascript: "osascript"}).GetVolume(context.Background())
	if err == nil || err.Error() != "execution error: Not authorized to send Apple events. (-1743)" {
		t.Fatalf("expected stderr text as error, got %v", err)
	}

	run.results["osascript -e "+osascriptGetVolume] = commandResult{ExitCode: 1}
	_, err = (&macVolume{run: run, osascript: "osascript"}).GetVolume(context.Background())
	if err == nil || err.Error() != "osascript failed" {
		t.Fatalf("expected generic osascript error, got %v", err)
	}
}

func TestMacVolume_SetRereads(t *testing.T) {
	run := newFakeRunner()
	run.results["osascript -e set volume output volume 0"] = commandResult{}
	run.results["osascript -e "+osascriptGetVolume] = commandResult{Stdout: "0\n"}

	got, err := (&macVolume{run: run, osascript: "osascript"}).SetVolume(context.Background(), -40)
	if err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if len(run.calls) != 2 {
		t.Errorf("expected set then get, got %v", run.calls)
	}
}

func TestNewVolumeAccessor_Selection(t *testing.T) {
	cfg := DefaultConfig()
	run := newFakeRunner()

	linux, err := newVolumeAccessor("linux", &cfg, run, testLogger())
	if err != nil {
		t.Fatalf("linux: %v", err)
	}
	if _, ok := linux.(*linuxMixer); !ok {
		t.Errorf("linux: expected *linuxMixer, got %T", linux)
	}

	mac, err := newVolumeAccessor("darwin", &cfg, run, testLogger())
	if err != nil {
		t.Fatalf("darwin: %v", err)
	}
	if _, ok := mac.(*macVolume); !ok {
		t.Errorf("darwin: expected *macVolume, got %T", mac)
	}

	_, err = newVolumeAccessor("plan9", &cfg, run, testLogger())
	if err == nil || err.Error() != "Unsupported OS: plan9" {
		t.Fatalf("expected unsupported OS error, got %v", err)
	}
}

func TestNewVolumeAccessor_ConfiguredToolPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.Pactl = "/opt/pulse/bin/pactl"
	run := newFakeRunner()
	run.results["/opt/pulse/bin/pactl get-sink-volume @DEFAULT_SINK@"] = commandResult{Stdout: "Volume: 12%"}

	vol, err := newVolumeAccessor("linux", &cfg, run, testLogger())
	if err != nil {
		t.Fatalf("newVolumeAccessor: %v", err)
	}
	got, err := vol.GetVolume(context.Background())
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestUnavailableVolume(t *testing.T) {
	vol := unavailableVolume{err: errors.New("Unsupported OS: plan9")}
	resp := handle(t, vol, `{"action":"get_volume"}`)
	expectError(t, resp, "Unsupported OS: plan9")
}
