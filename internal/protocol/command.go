package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command is a single instruction for the heater controller.
type Command string

const (
	CmdTempUp   Command = "TU"
	CmdTempDown Command = "TD"
	CmdEcoOn    Command = "ECO1"
	CmdEcoOff   Command = "ECO0"
	CmdCleanOn  Command = "CL1"
	CmdCleanOff Command = "CL0"
	CmdPowerOn  Command = "PWR1"
	CmdPowerOff Command = "PWR0"

	setTempPrefix = "ST"
	// DefaultSetTemp is used by a bare "ST" command.
	DefaultSetTemp = 30
)

var ErrUnknownCommand = errors.New("unknown command")

var fixedCommands = map[Command]struct{}{
	CmdTempUp: {}, CmdTempDown: {},
	CmdEcoOn: {}, CmdEcoOff: {},
	CmdCleanOn: {}, CmdCleanOff: {},
	CmdPowerOn: {}, CmdPowerOff: {},
}

// SetTemp builds an ST command for the given target.
func SetTemp(target int) Command {
	return Command(setTempPrefix + strconv.Itoa(target))
}

// ParseCommand normalises user input into a known command.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := fixedCommands[c]; ok {
		return c, nil
	}
	if rest, ok := strings.CutPrefix(string(c), setTempPrefix); ok {
		if rest == "" {
			return SetTemp(DefaultSetTemp), nil
		}
		v, err := strconv.Atoi(rest)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
		}
		return SetTemp(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Wire returns the newline-terminated bytes sent to the device.
func (c Command) Wire() []byte {
	return []byte(string(c) + "\n")
}
