package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusFail
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusLabel(kind statusKind, colorize bool) string {
	label, color := "OK", ansiGreen
	switch kind {
	case statusWarn:
		label, color = "WARN", ansiYellow
	case statusFail:
		label, color = "FAIL", ansiRed
	}
	if !colorize {
		return label
	}
	return color + label + ansiReset
}

func heading(w io.Writer, title string) {
	if shouldColorize(w) {
		title = ansiBold + title + ansiReset
	}
	fmt.Fprintln(w, title)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.2fs", v)
}
