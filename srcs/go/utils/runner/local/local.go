// Package local runs rank processes on the launcher host.
package local

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/proc"
	"github.com/lsds/ncclpg/srcs/go/utils/iostream"
	"github.com/lsds/ncclpg/srcs/go/utils/xterm"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	Name          string
	Color         xterm.Color
	LogDir        string
	LogFilePrefix string
	VerboseLog    bool
}

// Run starts cmd and waits for it. A cancelled command gets SIGTERM.
func (r Runner) Run(cmd *exec.Cmd) error {
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	return runWith(r.defaultRedirectors(), cmd)
}

func (r Runner) defaultRedirectors() []*iostream.StdWriters {
	var redirectors []*iostream.StdWriters
	if r.VerboseLog {
		redirectors = append(redirectors, iostream.NewRankRedirector(r.Name, r.Color))
	}
	if len(r.LogFilePrefix) > 0 {
		redirectors = append(redirectors, iostream.NewFileRedirector(path.Join(r.LogDir, r.LogFilePrefix)))
	}
	return redirectors
}

func runWith(redirectors []*iostream.StdWriters, cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	results := iostream.StdReaders{Stdout: stdout, Stderr: stderr}
	ioDone := results.Stream(redirectors...)
	if err := cmd.Start(); err != nil {
		return err
	}
	ioDone.Wait() // before cmd.Wait, which closes the pipes
	return cmd.Wait()
}

// RunAll runs every process and stops the others as soon as one fails.
func RunAll(ctx context.Context, ps []proc.Proc, verboseLog bool) error {
	g, ctx := errgroup.WithContext(ctx)
	var fail int32
	for i, p := range ps {
		g.Go(func() error {
			r := Runner{
				Name:          p.Name,
				Color:         xterm.RankColors.Choose(i),
				VerboseLog:    verboseLog,
				LogFilePrefix: strings.ReplaceAll(p.Name, "/", "-"),
				LogDir:        p.LogDir,
			}
			cmd := p.CmdContext(ctx)
			if err := r.Run(cmd); err != nil {
				log.Errorf("#<%s> exited with error: %v", p.Name, err)
				atomic.AddInt32(&fail, 1)
				return err
			}
			log.Debugf("#<%s> finished successfully", p.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%d tasks failed, first: %v", atomic.LoadInt32(&fail), err)
	}
	return nil
}
