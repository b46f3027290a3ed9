package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glucoflow/internal/cli"

	"github.com/klauspost/compress/gzip"
)

const sampleExport = `Glucose Data,Generated by device,,,,,
Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mmol/L,Scan Glucose mmol/L,Notes
FreeStyle,SN123,01-02-2024 17:00,0,5.5,,
FreeStyle,SN123,01-02-2024 18:00,0,5.8,,Dinner
FreeStyle,SN123,01-02-2024 19:00,0,7.0,,
FreeStyle,SN123,01-02-2024 20:00,0,6.3,,
`

// writeInput writes content into a temp dir and returns the file path.
func writeInput(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	err := os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	return path
}

func runCLI(t *testing.T, args []string, env map[string]string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	exit := cli.Run(nil, &stdout, &stderr, append([]string{"glucoflow"}, args...), env)

	return exit, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name       string
		input      string
		extraArgs  []string
		wantExit   int
		wantStdout []string
		wantStderr []string
		notStdout  []string
	}{
		{
			name:     "dinner scenario report",
			input:    sampleExport,
			wantExit: 0,
			wantStdout: []string{
				"Time: 2024-02-01 18:00",
				"Note: Dinner",
				"Initial Glucose: 5.8 mmol/L (104 mg/dL)",
				"Peak (2h): 7.0 mmol/L (126 mg/dL)",
				"Postprandial (2h): 6.3 mmol/L (113 mg/dL)",
				"Delta: +0.5 mmol/L (+9 mg/dL)",
				"SUMMARY STATISTICS",
				"Average Peak Glucose: 7.0 mmol/L (126 mg/dL)",
				"Average Postprandial Glucose: 6.3 mmol/L (113 mg/dL)",
				"Average Overnight Glucose: N/A",
			},
			notStdout: []string{"***"},
		},
		{
			name:      "peak threshold flags excursion",
			input:     sampleExport,
			extraArgs: []string{"--peak-threshold=6.5", "--postprandial-threshold=6.0"},
			wantExit:  0,
			wantStdout: []string{
				"Peak (2h): 7.0 mmol/L (126 mg/dL) ***",
				"Postprandial (2h): 6.3 mmol/L (113 mg/dL) ***",
			},
		},
		{
			name: "incomplete window is skipped with warning",
			input: "meta,,,,,,\n" +
				"Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mmol/L,Scan Glucose mmol/L,Notes\n" +
				"FreeStyle,SN123,01-02-2024 23:30,0,6.1,,Late snack\n" +
				"FreeStyle,SN123,01-02-2024 23:45,0,6.4,,\n",
			wantExit:   0,
			wantStdout: []string{"SUMMARY STATISTICS"},
			wantStderr: []string{"warning:", "skipped:", "Late snack"},
			notStdout:  []string{"Note: Late snack"},
		},
		{
			name: "whitespace note is not a meal",
			input: "meta,,,,,,\n" +
				"Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mmol/L,Scan Glucose mmol/L,Notes\n" +
				"FreeStyle,SN123,01-02-2024 18:00,0,5.8,,   \n" +
				"FreeStyle,SN123,01-02-2024 19:00,0,7.0,,\n",
			wantExit:   0,
			wantStdout: []string{"SUMMARY STATISTICS"},
			notStdout:  []string{"Note:"},
		},
		{
			name: "note rows within combine window merge into one meal",
			input: "meta,,,,,,\n" +
				"Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mmol/L,Scan Glucose mmol/L,Notes\n" +
				"FreeStyle,SN123,01-02-2024 12:00,0,5.4,,Pasta\n" +
				"FreeStyle,SN123,01-02-2024 12:30,0,6.0,,Dessert\n" +
				"FreeStyle,SN123,01-02-2024 13:30,0,8.1,,\n" +
				"FreeStyle,SN123,01-02-2024 14:30,0,6.8,,\n",
			extraArgs:  []string{"--combine-notes=60"},
			wantStdout: []string{"Note: Pasta | Dessert"},
			notStdout:  []string{"Note: Dessert"},
			wantExit:   0,
		},
		{
			name: "malformed glucose value aborts",
			input: "meta,,,,,,\n" +
				"Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mmol/L,Scan Glucose mmol/L,Notes\n" +
				"FreeStyle,SN123,01-02-2024 18:00,0,banana,,\n",
			wantExit:   1,
			wantStderr: []string{"error:", "malformed input", "line 3"},
		},
		{
			name: "out of order timestamps abort",
			input: "meta,,,,,,\n" +
				"Device,Serial Number,Device Timestamp,Record Type,Historic Glucose mmol/L,Scan Glucose mmol/L,Notes\n" +
				"FreeStyle,SN123,01-02-2024 19:00,0,5.8,,\n" +
				"FreeStyle,SN123,01-02-2024 18:00,0,6.1,,\n",
			wantExit:   1,
			wantStderr: []string{"error:", "malformed input"},
		},
	} {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			input := writeInput(t, "export.csv", tt.input)
			args := append([]string{input}, tt.extraArgs...)

			exit, stdout, stderr := runCLI(t, args, nil)

			if exit != tt.wantExit {
				t.Errorf("exit = %d, want %d\nstdout:\n%s\nstderr:\n%s", exit, tt.wantExit, stdout, stderr)
			}

			for _, want := range tt.wantStdout {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout missing %q\nstdout:\n%s", want, stdout)
				}
			}

			for _, want := range tt.wantStderr {
				if !strings.Contains(stderr, want) {
					t.Errorf("stderr missing %q\nstderr:\n%s", want, stderr)
				}
			}

			for _, not := range tt.notStdout {
				if strings.Contains(stdout, not) {
					t.Errorf("stdout unexpectedly contains %q\nstdout:\n%s", not, stdout)
				}
			}
		})
	}
}

func TestRunMissingInputFile(t *testing.T) {
	t.Parallel()

	exit, _, stderr := runCLI(t, []string{filepath.Join(t.TempDir(), "nope.csv")}, nil)

	if exit != 1 {
		t.Fatalf("exit = %d, want 1", exit)
	}

	if !strings.Contains(stderr, "error:") {
		t.Fatalf("stderr missing error: %s", stderr)
	}
}

func TestRunNoInputArgument(t *testing.T) {
	t.Parallel()

	exit, _, stderr := runCLI(t, nil, nil)

	if exit != 1 {
		t.Fatalf("exit = %d, want 1", exit)
	}

	if !strings.Contains(stderr, "input CSV path is required") {
		t.Fatalf("stderr missing message: %s", stderr)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	t.Parallel()

	exit, _, stderr := runCLI(t, []string{"--bogus"}, nil)

	if exit != 1 {
		t.Fatalf("exit = %d, want 1", exit)
	}

	if !strings.Contains(stderr, "error:") || !strings.Contains(stderr, "Usage:") {
		t.Fatalf("stderr missing error and usage: %s", stderr)
	}
}

func TestRunHelp(t *testing.T) {
	t.Parallel()

	exit, stdout, _ := runCLI(t, []string{"--help"}, nil)

	if exit != 0 {
		t.Fatalf("exit = %d, want 0", exit)
	}

	if !strings.Contains(stdout, "Usage: glucoflow") {
		t.Fatalf("stdout missing usage: %s", stdout)
	}
}

func TestRunCSVExport(t *testing.T) {
	t.Parallel()

	input := writeInput(t, "export.csv", sampleExport)
	output := filepath.Join(t.TempDir(), "analysis.csv")

	exit, stdout, stderr := runCLI(t, []string{input, "--output", output}, nil)

	if exit != 0 {
		t.Fatalf("exit = %d, want 0\nstderr:\n%s", exit, stderr)
	}

	if !strings.Contains(stdout, "CSV export saved to: "+output) {
		t.Errorf("stdout missing export note:\n%s", stdout)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}

	for _, want := range []string{"Dinner", "2024-02-01 18:00", "SUMMARY STATISTICS", "Average Peak Glucose"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("export missing %q\nexport:\n%s", want, data)
		}
	}
}

func TestRunGzipInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.csv.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	zw := gzip.NewWriter(f)

	if _, err := zw.Write([]byte(sampleExport)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	exit, stdout, stderr := runCLI(t, []string{path}, nil)

	if exit != 0 {
		t.Fatalf("exit = %d, want 0\nstderr:\n%s", exit, stderr)
	}

	if !strings.Contains(stdout, "Note: Dinner") {
		t.Errorf("stdout missing dinner block:\n%s", stdout)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	configPath := filepath.Join(dir, "cfg.json")
	config := `{
		// Semicolon-delimited export from an older firmware.
		"timestamp_column": "time",
		"timestamp_layout": "2006-01-02 15:04",
		"glucose_columns": ["glucose"],
		"notes_column": "note",
		"delimiter": ";",
		"skip_lines": 0,
	}`

	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	input := writeInput(t, "export.csv", "time;glucose;note\n"+
		"2024-02-01 18:00;5.8;Dinner\n"+
		"2024-02-01 19:00;7.0;\n"+
		"2024-02-01 20:00;6.3;\n")

	exit, stdout, stderr := runCLI(t, []string{input, "--config", configPath}, nil)

	if exit != 0 {
		t.Fatalf("exit = %d, want 0\nstderr:\n%s", exit, stderr)
	}

	if !strings.Contains(stdout, "Note: Dinner") {
		t.Errorf("stdout missing dinner block:\n%s", stdout)
	}
}

func TestRunEnvThresholdOverride(t *testing.T) {
	t.Parallel()

	input := writeInput(t, "export.csv", sampleExport)

	env := map[string]string{"GLUCOFLOW_PEAK_THRESHOLD": "6.5"}

	exit, stdout, stderr := runCLI(t, []string{input}, env)

	if exit != 0 {
		t.Fatalf("exit = %d, want 0\nstderr:\n%s", exit, stderr)
	}

	if !strings.Contains(stdout, "Peak (2h): 7.0 mmol/L (126 mg/dL) ***") {
		t.Errorf("stdout missing flagged peak:\n%s", stdout)
	}
}

func TestRunFlagBeatsEnvThreshold(t *testing.T) {
	t.Parallel()

	input := writeInput(t, "export.csv", sampleExport)

	env := map[string]string{"GLUCOFLOW_PEAK_THRESHOLD": "6.5"}

	exit, stdout, _ := runCLI(t, []string{input, "--peak-threshold=12.0"}, env)

	if exit != 0 {
		t.Fatalf("exit = %d, want 0", exit)
	}

	if strings.Contains(stdout, "Peak (2h): 7.0 mmol/L (126 mg/dL) ***") {
		t.Errorf("flag should override env threshold:\n%s", stdout)
	}
}
