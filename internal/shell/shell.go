// internal/shell/shell.go

// Package shell is the interactive command processor on the host
// terminal: line editing, prefix-matched command dispatch, and the device
// command set. It runs entirely on the interactive core.
package shell

import (
	"strings"

	"github.com/tamzrod/flash-programmer/internal/flash"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

const (
	prompt     = "> "
	lineMaxLen = 128
	ctrlBS     = 0x08
	ctrlRecall = 0x0B // ^K
	ctrlReinit = 0x12 // ^R
	ctrlClear  = 0x18 // ^X
	asciiDel   = 0x7F
)

// Terminal is the console surface the shell needs. The serial terminal
// satisfies it; tests use an in-memory fake.
type Terminal interface {
	Printf(format string, args ...any)
	Puts(s string)
	PutChar(c byte)
	Clear()
	GetChar() int
}

type rptOp int

const (
	rptNone rptOp = iota
	rptAddrSet
	rptWrData
	rptRdData
)

// Shell holds the command state: the current device address and data
// value, the repeat-operation machinery, and the command table.
type Shell struct {
	k   *kernel.Kernel
	eng *flash.Engine
	trm Terminal

	cmds []*Command

	line []byte
	last string

	// Device command state.
	addr    uint32
	data    byte
	sect    uint8
	dumpLen uint32

	repeat   bool
	rop      rptOp
	rptDlyIP bool // a repeat delay is scheduled and not yet received

	debug bool
}

// New builds the shell and its command table.
func New(k *kernel.Kernel, eng *flash.Engine, trm Terminal) *Shell {
	sh := &Shell{
		k:       k,
		eng:     eng,
		trm:     trm,
		line:    make([]byte, 0, lineMaxLen),
		dumpLen: 256,
	}
	sh.cmds = sh.commandTable()
	return sh
}

// Start registers for terminal input and shows the prompt. Call from the
// interactive core once its loop is running.
func (sh *Shell) Start() {
	sh.k.AddHandler(kernel.MsgTermCharRcvd, kernel.CoreUI, sh.handleCharReady)
	sh.k.AddHandler(kernel.MsgReinitTerminal, kernel.CoreUI, sh.handleReinitTerminal)
	sh.trm.Puts(prompt)
}

// Debug reports the debug flag state.
func (sh *Shell) Debug() bool { return sh.debug }

// SetDebug seeds the debug flag, normally from configuration at startup.
func (sh *Shell) SetDebug(on bool) { sh.debug = on }

// handleCharReady drains the terminal input buffer. One message may
// deliver several characters.
func (sh *Shell) handleCharReady(*kernel.Msg) {
	for {
		ci := sh.trm.GetChar()
		if ci < 0 {
			return
		}
		sh.handleChar(byte(ci))
	}
}

func (sh *Shell) handleChar(c byte) {
	switch c {
	case '\r', '\n':
		sh.trm.Puts("\n")
		sh.processLine(string(sh.line))
		sh.line = sh.line[:0]
		sh.trm.Puts(prompt)
	case ctrlBS, asciiDel:
		if len(sh.line) > 0 {
			sh.line = sh.line[:len(sh.line)-1]
			sh.trm.Puts("\b \b")
		}
	case ctrlClear:
		for range sh.line {
			sh.trm.Puts("\b \b")
		}
		sh.line = sh.line[:0]
	case ctrlRecall:
		sh.appendLine(sh.last)
	case ctrlReinit:
		msg := kernel.NewMsg(kernel.MsgReinitTerminal)
		msg.Data.Ch = c
		sh.k.Post(kernel.CoreUI, msg)
	default:
		if c >= 0x20 && c < asciiDel && len(sh.line) < lineMaxLen {
			sh.line = append(sh.line, c)
			sh.trm.PutChar(c)
		}
	}
}

// appendLine puts text on the current input line as if typed.
func (sh *Shell) appendLine(s string) {
	for i := 0; i < len(s) && len(sh.line) < lineMaxLen; i++ {
		sh.line = append(sh.line, s[i])
		sh.trm.PutChar(s[i])
	}
}

func (sh *Shell) handleReinitTerminal(*kernel.Msg) {
	sh.trm.Clear()
	sh.trm.Puts(prompt)
	sh.trm.Puts(string(sh.line))
}

// processLine parses and dispatches one input line. The command name may
// be abbreviated down to each entry's minimum match length.
func (sh *Shell) processLine(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}
	sh.last = line
	userCmd := args[0]

	for _, cmd := range sh.cmds {
		if len(userCmd) <= len(cmd.Name) && len(userCmd) >= cmd.MinMatch &&
			strings.HasPrefix(cmd.Name, userCmd) {
			cmd.Fn(args)
			return
		}
	}
	sh.trm.Printf("Command not found: '%s'. Try 'help'.\n", userCmd)
}
