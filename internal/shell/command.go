// internal/shell/command.go
package shell

import (
	"strings"

	"github.com/tamzrod/flash-programmer/internal/kernel"
	"github.com/tamzrod/flash-programmer/internal/status"
)

// Command is one entry in the dispatch table. Fn receives the full
// argument list (name included) and returns 0 for success or a negative
// exit status.
type Command struct {
	Fn       func(args []string) int32
	MinMatch int // minimum characters of Name that must be typed
	Name     string
	Usage    string
	Help     string
}

// commandTable builds the dispatch table. 'DOT' commands come first; they
// are hidden from plain help.
func (sh *Shell) commandTable() []*Command {
	return []*Command{
		{sh.cmdDebug, 4, ".debug", "[on|off]", "Show or set the debug flag."},
		{sh.cmdProcStatus, 3, ".ps", "", "Display process status per second."},
		{sh.cmdAddrToSect, 5, "patos", "addr(hex)", "Convert an address to a device sector number."},
		{sh.cmdAddr, 4, "paddr", "[addr(hex)|R]", "Show the address being used and optionally set it. Repeat setting it (for troubleshooting)."},
		{sh.cmdAddrNext, 4, "paaddr", "", "Advance the device address."},
		{sh.cmdClear, 3, "cls", "", "Clear the terminal screen."},
		{sh.cmdDump, 3, "pdump", "[[addr(hex)|.] len(dec)]", "Dump device data. Optionally specify start address and length."},
		{sh.cmdErase, 6, "perase", "", "Erase the device."},
		{sh.cmdInfo, 4, "pinfo", "", "Get device information."},
		{sh.cmdIsEmpty, 5, "pisempty", "", "Check if device is empty."},
		{sh.cmdPower, 3, "ppwr", "A|ON|OFF", "Set device power mode A|OFF|ON."},
		{sh.cmdRead, 3, "prd", "[addr(hex)|R]", "Read device data from the current or specified address, or start a repeated read. Using this command without 'R' stops any repeated operation."},
		{sh.cmdReadNext, 3, "prn", "", "Advance the address and read device data."},
		{sh.cmdWrite, 3, "pwr", "{[addr(hex)] data(hex)}|R", "Write device data to the current or specified address, or start a repeated write. Using this command without 'R' stops any repeated operation."},
		{sh.cmdWriteNext, 3, "pwn", "data(hex)", "Advance the address and write device data."},
		{sh.cmdSectAddr, 6, "psectaddr", "sectno(dec)", "Get address range for a device sector. 0-based sector number."},
		{sh.cmdSectErase, 10, "psecterase", "sectno(dec)", "Erase device sector. 0-based sector number."},
		{sh.cmdSectEmpty, 6, "psectempty", "sectno(dec)", "Check if device sector is empty. 0-based sector number."},
		{sh.cmdWriteVal, 4, "pwrval", "addr(hex) data(hex) [data(hex)...]", "Write one or more values to the specified address. Device location(s) must be empty."},
		{sh.cmdHelp, 1, "help", "[-a|--all] [command_name ...]", "List of commands or information for a specific command(s)."},
		{sh.cmdKeys, 4, "keys", "", "List of the keyboard control key actions."},
	}
}

// usage prints the usage line for a command entry.
func (sh *Shell) usage(cmd *Command) int32 {
	sh.trm.Printf("Usage: %s %s\n", cmd.Name, cmd.Usage)
	if cmd.Help != "" {
		sh.trm.Printf("  %s\n", cmd.Help)
	}
	return -1
}

func (sh *Shell) findCmd(name string) *Command {
	for _, cmd := range sh.cmds {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

// ---- built-in commands ----

func (sh *Shell) cmdClear(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd("cls"))
	}
	sh.trm.Clear()
	return 0
}

func (sh *Shell) cmdHelp(args []string) int32 {
	dispHidden := false
	rest := args[1:]
	if len(rest) > 0 && (rest[0] == "-a" || rest[0] == "--all") {
		dispHidden = true
		rest = rest[1:]
	}
	if len(rest) > 0 {
		for _, userCmd := range rest {
			matched := false
			for _, cmd := range sh.cmds {
				if len(userCmd) <= len(cmd.Name) && len(userCmd) >= cmd.MinMatch &&
					strings.HasPrefix(cmd.Name, userCmd) {
					matched = true
					sh.trm.Printf("%s %s\n  %s\n", cmd.Name, cmd.Usage, cmd.Help)
					break
				}
			}
			if !matched {
				sh.trm.Printf("Unknown: '%s'\n", userCmd)
			}
		}
		return 0
	}
	sh.trm.Puts("Commands:\n")
	for _, cmd := range sh.cmds {
		dotCmd := strings.HasPrefix(cmd.Name, ".")
		if !dotCmd || dispHidden {
			sh.trm.Printf("%s %s\n", cmd.Name, cmd.Usage)
		}
	}
	return 0
}

func (sh *Shell) cmdKeys(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd("keys"))
	}
	sh.trm.Puts("^H             : Backspace (same as Backspace key on most terminals).\n")
	sh.trm.Puts("^K             : Recall last command.\n")
	sh.trm.Puts("^R             : Refresh the terminal screen.\n")
	sh.trm.Puts("^X             : Clear the input line.\n")
	return 0
}

func (sh *Shell) cmdProcStatus(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd(".ps"))
	}
	for _, line := range status.Encode(status.Collect(sh.k)) {
		sh.trm.Puts(line)
		sh.trm.Puts("\n")
	}
	return 0
}

func (sh *Shell) cmdDebug(args []string) int32 {
	if len(args) > 2 {
		return sh.usage(sh.findCmd(".debug"))
	}
	if len(args) == 2 {
		sh.debug = boolFromStr(args[1])
		// Everyone with debug-dependent behavior hears about the change.
		msg := kernel.NewMsg(kernel.MsgDebugChanged)
		msg.Data.Bool = sh.debug
		sh.k.Post(kernel.CoreHW, msg)
		sh.k.Post(kernel.CoreUI, msg)
	}
	state := "OFF"
	if sh.debug {
		state = "ON"
	}
	sh.trm.Printf("Debug: %s\n", state)
	return 0
}

// boolFromStr treats on/true/yes/1 (any case) as true.
func boolFromStr(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true
	}
	return false
}
