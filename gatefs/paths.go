package gatefs

import "path/filepath"

// Paths names every directory of the gate, one field per spec'd
// subdirectory, set from configuration (gate_path_*). NewGate does not
// check that any of them is non-empty.
type Paths struct {
	Jobs    string
	Opts    string
	Exit    string
	Stop    string
	Delete  string
	Output  string
	Dump    string
	States  map[string]string // state name -> state-directory path
}

// NewPaths builds a Paths rooted at root, laying out the canonical
// subdirectory names under it. states lists the canonical state names the
// daemon is configured to recognize (service_states).
func NewPaths(root string, states []string) Paths {
	p := Paths{
		Jobs:   filepath.Join(root, "jobs"),
		Opts:   filepath.Join(root, "opts"),
		Exit:   filepath.Join(root, "exit"),
		Stop:   filepath.Join(root, "stop"),
		Delete: filepath.Join(root, "delete"),
		Output: filepath.Join(root, "output"),
		Dump:   filepath.Join(root, "dump"),
		States: make(map[string]string, len(states)),
	}
	for _, s := range states {
		p.States[s] = filepath.Join(root, s)
	}
	return p
}

// Dirs returns every directory Paths names, for use by callers that need
// to ensure the gate's directory tree exists before first use.
func (p Paths) Dirs() []string {
	dirs := []string{p.Jobs, p.Opts, p.Exit, p.Stop, p.Delete, p.Output, p.Dump}
	for _, d := range p.States {
		dirs = append(dirs, d)
	}
	return dirs
}
