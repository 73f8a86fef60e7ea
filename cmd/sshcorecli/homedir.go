package main

import "github.com/riglite/sshcore/homedir"

// expandHome resolves a leading ~ in a flag-supplied path (default
// known_hosts/identity locations) the way the teacher's own CLI-adjacent
// tooling does via the homedir package.
func expandHome(path string) (string, error) {
	return homedir.Expand(path)
}
