// ncclpg-run starts the rendezvous store and launches one process per rank.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lsds/ncclpg/srcs/go/job"
	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/plan"
	"github.com/lsds/ncclpg/srcs/go/proc"
	"github.com/lsds/ncclpg/srcs/go/store/httpstore"
	"github.com/lsds/ncclpg/srcs/go/utils"
	"github.com/lsds/ncclpg/srcs/go/utils/runner/local"
	"github.com/lsds/ncclpg/srcs/go/utils/runner/remote"
)

func main() {
	var f flagSet
	if err := f.parse(flag.CommandLine, os.Args[1:]); err != nil {
		utils.ExitErr(err)
	}
	f.logEnv()
	t0 := time.Now()
	defer func() { log.Infof("ncclpg-run took %s", time.Since(t0)) }()

	hl, err := f.hosts(context.Background())
	if err != nil {
		utils.ExitErr(err)
	}
	slots, err := hl.Place(f.np)
	if err != nil {
		utils.ExitErr(err)
	}
	j := job.Job{
		StartTime:      t0,
		HostList:       hl,
		Size:           f.np,
		DevicesPerRank: f.devicesPerRank,
		StoreAddr:      net.JoinHostPort(f.self, strconv.Itoa(f.storePort)),
		Prog:           f.prog,
		Args:           f.args,
		LogDir:         f.logDir,
	}
	procs, err := j.CreateProcs(slots)
	if err != nil {
		utils.ExitErr(err)
	}
	log.Debugf("%s", j.DebugString())

	ctx, cancel := utils.WithSignals(context.Background(), func(sig os.Signal) {
		log.Warnf("%s received, stopping %s", sig, utils.Pluralize(len(procs), "rank", "ranks"))
	})
	defer cancel()
	if f.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	srv, err := startStore(ctx, f.storePort)
	if err != nil {
		utils.ExitErr(err)
	}
	defer srv.Close()

	d, err := utils.Measure(func() error { return run(ctx, f, hl, procs) })
	log.Infof("all %s finished, took %s", utils.Pluralize(len(procs), "rank", "ranks"), d)
	if err != nil {
		utils.ExitErr(err)
	}
}

func run(ctx context.Context, f flagSet, hl plan.HostList, procs []proc.Proc) error {
	if hl.AllLocal() {
		log.Infof("will parallel run %s of %s with %q", utils.Pluralize(len(procs), "instance", "instances"), f.prog, f.args)
		return local.RunAll(ctx, procs, f.verboseLog)
	}
	log.Infof("will run %s over ssh", utils.Pluralize(len(procs), "instance", "instances"))
	return remote.RemoteRunAll(ctx, f.user, procs, f.verboseLog, f.logDir)
}

// startStore serves the rendezvous store and waits until it accepts
// requests.
func startStore(ctx context.Context, port int) (*http.Server, error) {
	store := httpstore.New(httpstore.DefaultPath)
	srv := &http.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(port)),
		Handler: httpstore.LogRequest(store),
	}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, httpstore.DefaultPath)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	n, ok := utils.Poll(ctx, func() bool {
		select {
		case <-errc:
			cancel()
			return false
		default:
		}
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	})
	if !ok {
		srv.Close()
		return nil, fmt.Errorf("store on port %d not ready after %s", port, utils.Pluralize(n, "poll", "polls"))
	}
	log.Infof("store is serving on port %d", port)
	return srv, nil
}
