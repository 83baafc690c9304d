// Package pin implements the pin micro-VM (C9): the multi-keyword "pin"
// command's single-pass verb interpreter over an implicit "current pin"
// register, plus the saved-state table verbs save/load draw on.
package pin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/task"
)

// GPIO is the narrow collaborator interface the VM drives; internal/cmds
// wires it to internal/linuxio's real implementation (or a fake, in
// tests).
type GPIO interface {
	SetDirection(pin int, input bool) error
	SetPull(pin int, up, down bool) error
	SetOpenDrain(pin int, enabled bool) error
	SetLevel(pin int, high bool) error
	GetLevel(pin int) (bool, error)
	ReadAnalog(pin int) (int, error)
	Hold(pin int) error
	Release(pin int) error
	MatrixIn(pin, sig int) error
	MatrixOut(pin, sig int) error
	IOMuxSelect(pin, fn int) error
	ResetToMatrix(pin int) error
}

// PWM is the pin VM's "pwm" verb collaborator.
type PWM interface {
	Attach(pin int, freqHz uint32, duty float64) error
}

// SequenceSender is the pin VM's "sequence" verb collaborator.
type SequenceSender interface {
	Send(pin int, seqID int) error
}

// VM is one pin command's interpreter: stateless between invocations
// except for the shared saved-state table.
type VM struct {
	GPIO  GPIO
	PWM   PWM
	Seq   SequenceSender
	Saved *Table
}

// out collects the text a verb wants printed ("read", "aread", errors).
type out struct {
	lines []string
}

func (o *out) Printf(format string, args ...any) {
	o.lines = append(o.lines, fmt.Sprintf(format, args...))
}

// Result is what Run reports back to the dispatcher/command handler.
type Result struct {
	Output      []string
	Interrupted bool
}

// Run interprets argv (the tokens after "pin", i.e. not including the
// keyword itself) against t for cancellation and poll for the
// foreground-keypress check used by interruptible delays and loops.
func (vm *VM) Run(t *task.Task, argv []string, poll func() bool) (Result, shellerr.Code) {
	verbs, loopCount, loopErr := splitLoop(argv)
	if loopErr != 0 {
		return Result{}, loopErr
	}

	var o out
	pass := 0
	for {
		interrupted, code := vm.runOnce(t, verbs, &o, poll)
		if code != shellerr.Success {
			return Result{Output: o.lines}, code
		}
		pass++
		if interrupted {
			o.Printf("Interrupted")
			return Result{Output: o.lines, Interrupted: true}, shellerr.Success
		}
		if loopCount == 0 {
			break // no loop verb: single pass
		}
		if loopCount > 0 && pass >= loopCount {
			break
		}
		select {
		case <-t.Signals():
			o.Printf("Interrupted")
			return Result{Output: o.lines, Interrupted: true}, shellerr.Success
		default:
		}
		if poll != nil && poll() {
			o.Printf("Interrupted")
			return Result{Output: o.lines, Interrupted: true}, shellerr.Success
		}
	}
	return Result{Output: o.lines}, shellerr.Success
}

// splitLoop pulls a trailing "loop N|inf" verb (with its argument) off
// argv, since it must wrap the rest of the verb list rather than execute
// in place. Returns loopCount == 0 for "no loop requested", -1 for
// infinite.
func splitLoop(argv []string) (verbs []string, loopCount int, code shellerr.Code) {
	for i := 0; i < len(argv); i++ {
		if !isVerb(argv[i], "loop") {
			continue
		}
		if i != len(argv)-2 {
			return nil, 0, shellerr.BadArg(i + 1)
		}
		arg := argv[i+1]
		if arg == "inf" {
			return argv[:i], -1, shellerr.Success
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, 0, shellerr.BadArg(i + 2)
		}
		return argv[:i], n, shellerr.Success
	}
	return argv, 0, shellerr.Success
}

// runOnce executes the verb list once, left to right, and reports whether
// an interruptible delay ended early.
func (vm *VM) runOnce(t *task.Task, verbs []string, o *out, poll func() bool) (interrupted bool, code shellerr.Code) {
	currentPin := -1
	var flags Flags

	for i := 0; i < len(verbs); i++ {
		v := verbs[i]

		if n, err := strconv.Atoi(v); err == nil {
			currentPin = n
			continue
		}
		if currentPin < 0 && !isVerb(v, "delay") {
			return false, shellerr.BadArg(i + 1)
		}

		switch {
		case isVerb(v, "high"), isVerb(v, "low"), isVerb(v, "toggle"):
			if flags&FlagInput != 0 {
				o.Printf("%% Pin %d is input-only", currentPin)
				return false, shellerr.Failed
			}
			level := isVerb(v, "high")
			if isVerb(v, "toggle") {
				cur, _ := vm.GPIO.GetLevel(currentPin)
				level = !cur
			}
			if err := vm.GPIO.SetLevel(currentPin, level); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}

		case isVerb(v, "in"):
			flags |= FlagInput
			if err := vm.GPIO.SetDirection(currentPin, true); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
		case isVerb(v, "out"):
			flags |= FlagOutput
			flags &^= FlagInput
			if err := vm.GPIO.SetDirection(currentPin, false); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
		case isVerb(v, "open"):
			flags |= FlagOpenDrain
			if err := vm.GPIO.SetOpenDrain(currentPin, true); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
		case isVerb(v, "up"):
			flags |= FlagPullUp
			if err := vm.GPIO.SetPull(currentPin, true, flags&FlagPullDown != 0); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
		case isVerb(v, "down"):
			flags |= FlagPullDown
			if err := vm.GPIO.SetPull(currentPin, flags&FlagPullUp != 0, true); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}

		case isVerb(v, "read"):
			level, err := vm.GPIO.GetLevel(currentPin)
			if err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			o.Printf("%%GPIO%d: %s", currentPin, levelName(level))

		case isVerb(v, "aread"):
			val, err := vm.GPIO.ReadAnalog(currentPin)
			if err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			o.Printf("%%GPIO%d: analog %d", currentPin, val)

		case isVerb(v, "save"):
			lvl, _ := vm.GPIO.GetLevel(currentPin)
			vm.Saved.Save(currentPin, Saved{Flags: flags, Level: lvl, MatrixIn: -1, MatrixOut: -1})

		case isVerb(v, "load"):
			s, ok := vm.Saved.Load(currentPin)
			if !ok {
				o.Printf("%% No saved state for pin %d", currentPin)
				return false, shellerr.Failed
			}
			flags = s.Flags
			if err := vm.GPIO.SetDirection(currentPin, flags&FlagInput != 0); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			if err := vm.GPIO.SetPull(currentPin, flags&FlagPullUp != 0, flags&FlagPullDown != 0); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			if err := vm.GPIO.SetOpenDrain(currentPin, flags&FlagOpenDrain != 0); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			if flags&FlagOutput != 0 {
				if err := vm.GPIO.SetLevel(currentPin, s.Level); err != nil {
					o.Printf("%% %v", err)
					return false, shellerr.Failed
				}
			}

		case isVerb(v, "reset"):
			if err := vm.GPIO.ResetToMatrix(currentPin); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			flags = 0

		case isVerb(v, "hold"):
			if err := vm.GPIO.Hold(currentPin); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
		case isVerb(v, "release"):
			if err := vm.GPIO.Release(currentPin); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}

		case isVerb(v, "iomux"):
			fn := 0
			if i+1 < len(verbs) {
				if n, err := strconv.Atoi(verbs[i+1]); err == nil {
					fn = n
					i++
				}
			}
			if err := vm.GPIO.IOMuxSelect(currentPin, fn); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}

		case isVerb(v, "matrix"):
			if i+2 < len(verbs) && (verbs[i+1] == "in" || verbs[i+1] == "out") {
				sig, err := strconv.Atoi(verbs[i+2])
				if err != nil {
					return false, shellerr.BadArg(i + 3)
				}
				if verbs[i+1] == "in" {
					err = vm.GPIO.MatrixIn(currentPin, sig)
				} else {
					err = vm.GPIO.MatrixOut(currentPin, sig)
				}
				if err != nil {
					o.Printf("%% %v", err)
					return false, shellerr.Failed
				}
				i += 2
			} else {
				if err := vm.GPIO.MatrixIn(currentPin, matrixConstZero); err != nil {
					o.Printf("%% %v", err)
					return false, shellerr.Failed
				}
				if err := vm.GPIO.MatrixOut(currentPin, matrixSimpleGPIO); err != nil {
					o.Printf("%% %v", err)
					return false, shellerr.Failed
				}
			}

		case isVerb(v, "pwm"):
			if i+2 >= len(verbs) {
				return false, shellerr.MissingArg
			}
			freq, err1 := strconv.ParseFloat(verbs[i+1], 64)
			duty, err2 := strconv.ParseFloat(verbs[i+2], 64)
			if err1 != nil {
				return false, shellerr.BadArg(i + 2)
			}
			if err2 != nil || duty < 0 || duty > 1 {
				return false, shellerr.BadArg(i + 3)
			}
			if err := vm.PWM.Attach(currentPin, uint32(freq), duty); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			i += 2

		case isVerb(v, "sequence"):
			if i+1 >= len(verbs) {
				return false, shellerr.MissingArg
			}
			id, err := strconv.Atoi(verbs[i+1])
			if err != nil {
				return false, shellerr.BadArg(i + 2)
			}
			if err := vm.Seq.Send(currentPin, id); err != nil {
				o.Printf("%% %v", err)
				return false, shellerr.Failed
			}
			i++

		case isVerb(v, "delay"):
			if i+1 >= len(verbs) {
				return false, shellerr.MissingArg
			}
			ms, err := strconv.Atoi(verbs[i+1])
			if err != nil || ms < 0 {
				return false, shellerr.BadArg(i + 2)
			}
			i++
			_, completed := task.Delay(t, time.Duration(ms)*time.Millisecond, poll)
			if !completed {
				return true, shellerr.Success
			}

		default:
			return false, shellerr.BadArg(i + 1)
		}
	}
	return false, shellerr.Success
}

func isVerb(token, verb string) bool {
	t := strings.ToLower(token)
	return len(t) > 0 && strings.HasPrefix(verb, t)
}

func levelName(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

const (
	matrixConstZero  = 0x38 // GPIO_MATRIX_CONST_ZERO_INPUT on ESP32; kept as a named constant for fidelity
	matrixSimpleGPIO = 0x100
)
