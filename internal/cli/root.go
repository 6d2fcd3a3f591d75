// Package cli holds the focusbot subcommands. Each command is a kong struct
// with a Run(*Context) method.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/focusbot/internal/backup"
	"github.com/julianstephens/focusbot/internal/config"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/storage"
)

// Context is passed to every command's Run method.
type Context struct {
	Config *config.Config
	Store  storage.Provider
	Out    io.Writer
	In     io.Reader
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// confirm asks a yes/no question on In, defaulting to no.
func (c *Context) confirm(question string) (bool, error) {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	c.printf("%s [y/N]: ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// PerformAutomaticBackup snapshots the store and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	mgr := backup.NewManager(c.Store, c.Config.DataDir)
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}
