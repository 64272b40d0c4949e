package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cast"
)

//Event scripts drive a headless run the way a user would drive the window:
//
//	step 120        advance 120 ticks, also while paused
//	mouse 0 -5      hold the pointer at a point
//	release         let go of the pointer
//	add 1.5 2       spawn a particle
//	pause / resume  stop and restart the automatic ticks
//	set gravity -9  change one setting between ticks
//
//Arguments follow shell quoting, # starts a comment.

const (
	CMD_STEP    = "step"
	CMD_MOUSE   = "mouse"
	CMD_RELEASE = "release"
	CMD_ADD     = "add"
	CMD_PAUSE   = "pause"
	CMD_RESUME  = "resume"
	CMD_SET     = "set"
)

//Command is one parsed script line
type Command struct {
	Op   string
	Args []string
	Line int
}

func (c Command) String() string {
	return strings.TrimSpace(c.Op + " " + strings.Join(c.Args, " "))
}

//arity gives the accepted argument counts of each command
var arity = map[string][]int{
	CMD_STEP:    {1},
	CMD_MOUSE:   {2, 3},
	CMD_RELEASE: {0},
	CMD_ADD:     {2, 3},
	CMD_PAUSE:   {0},
	CMD_RESUME:  {0},
	CMD_SET:     {2},
}

//ParseScript tokenizes every line and checks command names, argument counts
//and step counts
func ParseScript(r io.Reader) ([]Command, error) {
	var cmds []Command
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		tokens, err := shlex.Split(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(tokens) == 0 {
			continue
		}

		cmd := Command{Op: strings.ToLower(tokens[0]), Args: tokens[1:], Line: line}
		counts, ok := arity[cmd.Op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown command %q", line, tokens[0])
		}
		if !containsInt(counts, len(cmd.Args)) {
			return nil, fmt.Errorf("line %d: %s takes %v arguments, got %d", line, cmd.Op, counts, len(cmd.Args))
		}
		if cmd.Op == CMD_STEP {
			if n, err := cast.ToIntE(cmd.Args[0]); err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: step count %q is not a non negative integer", line, cmd.Args[0])
			}
		}
		cmds = append(cmds, cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cmds, nil
}

func containsInt(xs []int, x int) bool {
	for _, y := range xs {
		if x == y {
			return true
		}
	}
	return false
}
