package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"

	"github.com/ethpandaops/storage-probe/internal/interactive"
)

func runInteractive(envFile string) {
	fmt.Println("Storage Probe - Interactive Mode")
	fmt.Println("================================")
	fmt.Println()

	for {
		options := []interactive.MenuOption{
			{
				Name:        "🧪 Run Suite",
				Description: "Run every storage probe and print the results",
				Action: func() error {
					return runSuiteInteractive(envFile)
				},
			},
			{
				Name:        "📜 History",
				Description: "List recorded runs",
				Action: func() error {
					return runCLICommand(envFile, "history")
				},
			},
			{
				Name:        "🔎 Show Run",
				Description: "Print a stored report by index",
				Action: func() error {
					return showRunInteractive(envFile)
				},
			},
			{
				Name:        "📋 Show Config",
				Description: "Display current environment configuration",
				Action: func() error {
					return runCLICommand(envFile, "show-config")
				},
			},
		}

		if err := interactive.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				fmt.Println("Goodbye!")
				return
			}
			log.Fatal(err)
		}

		fmt.Println()
	}
}

func runSuiteInteractive(envFile string) error {
	formats := []string{"json", "yaml"}

	reportFormat, err := interactive.SelectFromList("Select report format:", formats)
	if err != nil {
		fmt.Println("Selection canceled.")
		interactive.PauseForEnter()
		return nil
	}

	args := []string{"run", "--format", reportFormat}

	if interactive.Confirm("Write the report to a file?") {
		path, err := interactive.Input("Report path:", "report."+reportFormat)
		if err != nil {
			fmt.Println("Input canceled.")
			interactive.PauseForEnter()
			return nil
		}
		args = append(args, "--output", path)
	}

	if interactive.Confirm("Enable verbose output?") {
		args = append(args, "--verbose")
	}

	return runCLICommand(envFile, args...)
}

func showRunInteractive(envFile string) error {
	value, err := interactive.Input("Run index:", "")
	if err != nil {
		fmt.Println("Input canceled.")
		interactive.PauseForEnter()
		return nil
	}

	index, err := strconv.ParseUint(value, 10, 64)
	if err != nil || index == 0 {
		fmt.Println("\n❌ Invalid index")
		interactive.PauseForEnter()
		return nil
	}

	return runCLICommand(envFile, "history", "--show", strconv.FormatUint(index, 10))
}

// runCLICommand re-invokes the current binary with the given subcommand.
func runCLICommand(envFile string, args ...string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		fmt.Printf("\n❌ Could not locate binary: %v\n", err)
		interactive.PauseForEnter()
		return nil
	}

	if envFile != "" {
		args = append([]string{envFlag, envFile}, args...)
	}

	fmt.Printf("\n🚀 Running: storage-probe %v\n\n", args)

	// #nosec G204 -- binaryPath is the running executable and args are controlled by menu selections
	cmd := exec.Command(binaryPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		fmt.Printf("\n❌ Command failed: %v\n", err)
		interactive.PauseForEnter()
		return nil
	}

	interactive.PauseForEnter()
	return nil
}
