// Package remote runs rank processes on other hosts over ssh.
package remote

import (
	"context"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/proc"
	"github.com/lsds/ncclpg/srcs/go/utils/iostream"
	"github.com/lsds/ncclpg/srcs/go/utils/ssh"
	"github.com/lsds/ncclpg/srcs/go/utils/xterm"
	"golang.org/x/sync/errgroup"
)

func RemoteRunAll(ctx context.Context, user string, ps []proc.Proc, verboseLog bool, logDir string) error {
	g, ctx := errgroup.WithContext(ctx)
	var fail int32
	for i, p := range ps {
		g.Go(func() error {
			t0 := time.Now()
			config := ssh.Config{
				Host: p.Hostname,
				User: user,
			}
			client, err := ssh.New(config)
			if err != nil {
				log.Errorf("#<%s> failed to create ssh client for %s: %v", p.Name, config.Host, err)
				atomic.AddInt32(&fail, 1)
				return err
			}
			defer client.Close()
			var redirectors []*iostream.StdWriters
			if verboseLog {
				redirectors = append(redirectors, iostream.NewRankRedirector(p.Name, xterm.RankColors.Choose(i)))
			}
			redirectors = append(redirectors, iostream.NewFileRedirector(path.Join(logDir, p.Name)))
			if err := client.Watch(ctx, p.Script(), redirectors); err != nil {
				log.Errorf("#<%s> exited with error: %v, took %s", p.Name, err, time.Since(t0))
				atomic.AddInt32(&fail, 1)
				return err
			}
			log.Debugf("#<%s> finished successfully, took %s", p.Name, time.Since(t0))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%d tasks failed, first: %v", atomic.LoadInt32(&fail), err)
	}
	return nil
}
