package minifier

// `exec` pipes CSS through an external command, such as csso-cli.
// It doesn't generate source maps.
//
// Options:
//   command: string - program to run (required)
//   args: list of strings - its arguments

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

func init() {
	Register("exec", func() Minifier {
		return Exec(0)
	})
}

type Exec int

func (f Exec) Name() string { return "exec" }

func stringListParam(params map[string]interface{}, name string) ([]string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case []string:
		return x, nil
	case []interface{}:
		list := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("option %q must be a list of strings", name)
			}
			list[i] = s
		}
		return list, nil
	}
	return nil, fmt.Errorf("option %q must be a list of strings", name)
}

func (f Exec) Minify(s string, opts *Options) (*Result, error) {
	command, err := stringParam(opts.Params, "command", "")
	if err != nil {
		return nil, err
	}
	if command == "" {
		return nil, errors.New(`option "command" is required`)
	}
	args, err := stringListParam(opts.Params, "args")
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(command, args...)
	cmd.Stdin = strings.NewReader(s)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", command, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	return &Result{CSS: stdout.String()}, nil
}
