// Package interactive provides terminal prompts for the interactive mode
package interactive

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

const exitChoice = "Exit"

// MenuOption represents a menu item with its associated action
type MenuOption struct {
	Name        string
	Description string
	Action      func() error
}

var (
	// ErrExit is returned when the user chooses to exit
	ErrExit = errors.New("exit")
	// ErrInvalidSelection is returned when an invalid menu option is selected
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrEmptyList is returned when there is nothing to choose from
	ErrEmptyList = errors.New("nothing to select")
)

// MenuChoices returns the prompt labels for options followed by the exit entry.
func MenuChoices(options []MenuOption) []string {
	choices := make([]string, 0, len(options)+1)
	for _, opt := range options {
		choices = append(choices, choiceLabel(opt))
	}

	return append(choices, exitChoice)
}

func choiceLabel(opt MenuOption) string {
	return fmt.Sprintf("%s - %s", opt.Name, opt.Description)
}

// Dispatch runs the action matching a selected label.
func Dispatch(options []MenuOption, selected string) error {
	if selected == exitChoice {
		return ErrExit
	}

	for _, opt := range options {
		if choiceLabel(opt) == selected {
			return opt.Action()
		}
	}

	return ErrInvalidSelection
}

// ShowMainMenu displays the main menu and handles user selection
func ShowMainMenu(options []MenuOption) error {
	var selected string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: MenuChoices(options),
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return ErrExit
	}

	return Dispatch(options, selected)
}

// SelectFromList asks the user to pick one item.
func SelectFromList(message string, items []string) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyList
	}

	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: items,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", fmt.Errorf("selecting from list: %w", err)
	}

	return selected, nil
}

// Input asks for free text with a default.
func Input(message, defaultValue string) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}

	if err := survey.AskOne(prompt, &value); err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}

	return value, nil
}

// PauseForEnter waits for the user to press Enter
func PauseForEnter() {
	fmt.Println("\nPress Enter to continue...")
	_, _ = fmt.Scanln()
}

// Confirm asks for user confirmation
func Confirm(message string) bool {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	_ = survey.AskOne(prompt, &confirmed)
	return confirmed
}
