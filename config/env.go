package config

import (
	"os"
	"strings"
)

// Env is a set of variables read from a file, which the process environment
// overrides. It is a source of variables for go-simpler.org/env.
type Env map[st]st

// GetEnv reads a file of KEY=value lines. Blank lines, comments and an
// export keyword are skipped, and quotes around values are removed.
func GetEnv(path st) (e Env, err er) {
	var b by
	e = make(Env)
	if b, err = os.ReadFile(path); err != nil {
		return
	}
	for _, line := range strings.Split(st(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			log.W.F("%s: ignoring line %q", path, line)
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
			v = v[1 : len(v)-1]
		}
		e[strings.TrimSpace(k)] = v
	}
	return
}

// LookupEnv returns the value of a variable from the process environment, or
// else from the file.
func (e Env) LookupEnv(key st) (value st, ok bo) {
	if value, ok = os.LookupEnv(key); ok {
		return
	}
	value, ok = e[key]
	return
}
