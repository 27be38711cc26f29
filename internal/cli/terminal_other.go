//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package cli

import "io"

func isTerminal(io.Reader) bool { return false }
