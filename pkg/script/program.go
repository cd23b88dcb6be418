package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

// Op identifies a script command.
type Op int

const (
	OpVolume Op = iota
	OpPlay
	OpList
	OpLoop
	OpLoopAdvance
	OpLoopAll
	OpStop
	OpWait
	OpSleep
	OpUpdate
	OpUpdateAll
)

var opNames = [...]string{
	OpVolume:      "volume",
	OpPlay:        "play",
	OpList:        "list",
	OpLoop:        "loop",
	OpLoopAdvance: "loop-advance",
	OpLoopAll:     "loop-all",
	OpStop:        "stop",
	OpWait:        "wait",
	OpSleep:       "sleep",
	OpUpdate:      "update",
	OpUpdateAll:   "update-all",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Step is one checked command.
type Step struct {
	Pos      lexer.Position
	Op       Op
	Value    uint8         // index or volume
	List     []uint8       // OpList
	Duration time.Duration // OpSleep, OpWait timeout (zero waits forever)
	Path     string        // OpUpdate, OpUpdateAll
}

func (s Step) String() string {
	switch s.Op {
	case OpVolume, OpPlay, OpLoop, OpLoopAdvance:
		return fmt.Sprintf("%s 0x%02X", s.Op, s.Value)
	case OpList:
		parts := make([]string, len(s.List))
		for i, v := range s.List {
			parts[i] = fmt.Sprintf("0x%02X", v)
		}
		return fmt.Sprintf("%s %s", s.Op, strings.Join(parts, ", "))
	case OpWait:
		if s.Duration > 0 {
			return fmt.Sprintf("%s %v", s.Op, s.Duration)
		}
		return s.Op.String()
	case OpSleep:
		return fmt.Sprintf("%s %v", s.Op, s.Duration)
	case OpUpdate:
		return fmt.Sprintf("%s 0x%02X %q", s.Op, s.Value, s.Path)
	case OpUpdateAll:
		return fmt.Sprintf("%s %q", s.Op, s.Path)
	default:
		return s.Op.String()
	}
}

// Program is a checked script.
type Program struct {
	Steps []Step
}

func compile(f *File) (*Program, error) {
	prog := &Program{}
	for _, st := range f.Statements {
		step, err := compileStatement(st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.Pos, err)
		}
		prog.Steps = append(prog.Steps, step)
	}
	return prog, nil
}

func compileStatement(st *Statement) (Step, error) {
	step := Step{Pos: st.Pos}
	var err error
	switch {
	case st.Volume != nil:
		step.Op = OpVolume
		step.Value, err = number(*st.Volume, "volume", wt588.MaxVolume)
	case st.Play != nil:
		step.Op = OpPlay
		step.Value, err = number(*st.Play, "index", wt588.MaxIndex)
	case st.List != nil:
		step.Op = OpList
		if len(st.List) > wt588.MaxListLength {
			return step, fmt.Errorf("list has %d entries, at most %d allowed", len(st.List), wt588.MaxListLength)
		}
		for _, s := range st.List {
			v, err := number(s, "index", wt588.MaxIndex)
			if err != nil {
				return step, err
			}
			step.List = append(step.List, v)
		}
	case st.Loop != nil:
		step.Op = OpLoop
		step.Value, err = number(*st.Loop, "index", wt588.MaxIndex)
	case st.LoopAdvance != nil:
		step.Op = OpLoopAdvance
		step.Value, err = number(*st.LoopAdvance, "index", wt588.MaxIndex)
	case st.LoopAll:
		step.Op = OpLoopAll
	case st.Stop:
		step.Op = OpStop
	case st.Wait != nil:
		step.Op = OpWait
		if st.Wait.Timeout != "" {
			step.Duration, err = time.ParseDuration(st.Wait.Timeout)
		}
	case st.Sleep != nil:
		step.Op = OpSleep
		step.Duration, err = time.ParseDuration(*st.Sleep)
	case st.Update != nil:
		step.Op = OpUpdate
		step.Path = st.Update.Path
		step.Value, err = number(st.Update.Index, "index", wt588.MaxIndex)
	case st.UpdateAll != nil:
		step.Op = OpUpdateAll
		step.Path = *st.UpdateAll
	default:
		return step, fmt.Errorf("empty statement")
	}
	return step, err
}

func number(s, what string, max uint8) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	if uint8(v) > max {
		return 0, fmt.Errorf("%s 0x%02X exceeds 0x%02X", what, v, max)
	}
	return uint8(v), nil
}
