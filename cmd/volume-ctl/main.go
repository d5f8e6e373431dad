package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	flag "github.com/spf13/pflag"

	"volumehost/internal/nativemsg"
)

// ============================================================================
// volume-ctl - Command-line native messaging client
// ============================================================================
// Starts a volume-host process the way a browser does and exchanges one
// framed command with it over the child's stdin/stdout.
//
// Usage:
//   volume-ctl get
//   volume-ctl set 40
//   volume-ctl change -5
//   volume-ctl up
//   volume-ctl raw '{"action":"get_volume"}'
//
// Options:
//   --host PATH    volume-host binary (default: volume-host on PATH)
// ============================================================================

const defaultStep = 5

// Response mirrors the host's reply (duplicated from the host package for a standalone binary)
type Response struct {
	OK     bool   `json:"ok"`
	Volume *int   `json:"volume,omitempty"`
	Error  string `json:"error,omitempty"`
}

func main() {
	hostPath := flag.String("host", "volume-host", "volume-host binary to launch")
	jsonOut := flag.Bool("json", false, "Print the raw JSON response")
	flag.Usage = printUsage
	// Stop at the command name so negative deltas are not read as flags.
	flag.CommandLine.SetInterspersed(false)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var command any

	switch args[0] {
	case "get":
		command = map[string]string{"action": "get_volume"}

	case "set":
		n, err := intArg(args, "set requires a volume (0-100)")
		if err != nil {
			fail(err)
		}
		command = map[string]any{"action": "set_volume", "value": n}

	case "change":
		n, err := intArg(args, "change requires a delta")
		if err != nil {
			fail(err)
		}
		command = map[string]any{"action": "change_volume", "delta": n}

	case "up", "down":
		step := defaultStep
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				fail(fmt.Errorf("invalid step: %v", err))
			}
			step = n
		}
		if args[0] == "down" {
			step = -step
		}
		command = map[string]any{"action": "change_volume", "delta": step}

	case "raw":
		if len(args) < 2 {
			fail(errors.New("raw requires a JSON message"))
		}
		if !json.Valid([]byte(args[1])) {
			fail(errors.New("raw message is not valid JSON"))
		}
		command = json.RawMessage(args[1])

	case "help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	raw, err := exchange(*hostPath, command)
	if err != nil {
		fail(err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		fail(fmt.Errorf("decode response: %w", err))
	}

	if *jsonOut {
		fmt.Println(string(raw))
	} else if resp.OK && resp.Volume != nil {
		fmt.Println(*resp.Volume)
	}

	if !resp.OK {
		fail(fmt.Errorf("host error: %s", resp.Error))
	}
}

// exchange launches the host, sends one framed command and returns the raw
// framed reply. Closing the child's stdin lets the host exit cleanly.
func exchange(hostPath string, command any) (json.RawMessage, error) {
	cmd := exec.Command(hostPath, "volume-ctl")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", hostPath, err)
	}

	conn := nativemsg.NewConn(stdout, stdin)
	if err := conn.Write(command); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("send command: %w", err)
	}
	_ = stdin.Close()

	raw, readErr := conn.Read()
	waitErr := cmd.Wait()
	if readErr != nil {
		return nil, fmt.Errorf("read response: %w", readErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		// The host exits non-zero after reporting a fatal error; the reply says why.
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("wait for host: %w", waitErr)
		}
	}
	return raw, nil
}

func intArg(args []string, missing string) (int, error) {
	if len(args) < 2 {
		return 0, errors.New(missing)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %v", args[1], err)
	}
	return n, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `volume-ctl - Talk to volume-host over the native messaging protocol

Usage:
  volume-ctl [options] <command> [args]

Options:
  --host PATH     volume-host binary to launch (default: volume-host on PATH)
  --json          Print the raw JSON response

Commands:
  get                     Print the current volume
  set <0-100>             Set the volume
  change <delta>          Change the volume by delta
  up [step], down [step]  Change the volume by step (default %d)
  raw <json>              Send a raw JSON message
  help                    Show this help message

Examples:
  volume-ctl get
  volume-ctl set 30
  volume-ctl --host ./volume-host down 10
`, defaultStep)
}
