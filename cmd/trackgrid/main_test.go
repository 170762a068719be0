package main

import (
	"os"
	"os/exec"
	"testing"
)

// TestMainHelpExitsZero re-executes the test binary as a subprocess with
// GO_WANT_HELPER_PROCESS=1 so main() actually runs to its os.Exit call
// without terminating the test runner itself.
func TestMainHelpExitsZero(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		os.Args = []string{"trackgrid", "--help"}
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainHelpExitsZero")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("main() with --help exited non-zero: %v\noutput:\n%s", err, out)
	}
}

func TestMainUnknownFlagExitsNonZero(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		os.Args = []string{"trackgrid", "--this-flag-does-not-exist"}
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainUnknownFlagExitsNonZero")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("main() with an unknown flag should exit non-zero")
	}
}
