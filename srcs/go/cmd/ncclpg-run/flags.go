package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/lsds/ncclpg/srcs/go/plan"
	"github.com/lsds/ncclpg/srcs/go/plan/hostfile"
	"github.com/lsds/ncclpg/srcs/go/utils"
)

type flagSet struct {
	np             int
	hostList       string
	hostFile       string
	user           string
	self           string
	storePort      int
	devicesPerRank int
	logDir         string
	timeout        time.Duration
	verboseLog     bool
	quiet          bool

	prog string
	args []string
}

func (f *flagSet) register(fs *flag.FlagSet) {
	fs.IntVar(&f.np, "np", 1, "number of ranks")
	fs.StringVar(&f.hostList, "H", plan.DefaultHostList.String(), "comma separated list of <internal IP>:<nslots>[:<public addr>]")
	fs.StringVar(&f.hostFile, "hostfile", "", "path or URL of a host file, overrides -H")
	fs.StringVar(&f.user, "u", "", "user name for ssh")
	fs.StringVar(&f.self, "self", "127.0.0.1", "address of the rendezvous store, as seen by the ranks")
	fs.IntVar(&f.storePort, "store-port", 38080, "port of the rendezvous store")
	fs.IntVar(&f.devicesPerRank, "devices-per-rank", 1, "number of devices driven by each rank")
	fs.StringVar(&f.logDir, "logdir", ".", "directory of the rank logs")
	fs.DurationVar(&f.timeout, "timeout", 0, "timeout")
	fs.BoolVar(&f.verboseLog, "v", true, "show rank logs")
	fs.BoolVar(&f.quiet, "q", false, "don't log debug info")
}

var errMissingProgramName = errors.New("missing program name")

func (f *flagSet) parse(fs *flag.FlagSet, args []string) error {
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.np < 1 {
		return fmt.Errorf("invalid -np: %d", f.np)
	}
	if f.devicesPerRank < 1 {
		return fmt.Errorf("invalid -devices-per-rank: %d", f.devicesPerRank)
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return errMissingProgramName
	}
	f.prog = rest[0]
	f.args = rest[1:]
	return nil
}

func (f *flagSet) hosts(ctx context.Context) (plan.HostList, error) {
	if len(f.hostFile) > 0 {
		return hostfile.ParseFile(ctx, f.hostFile)
	}
	hl, err := plan.ParseHostList(f.hostList)
	if err != nil {
		return nil, fmt.Errorf("failed to parse -H: %v", err)
	}
	return hl, nil
}

func (f *flagSet) logEnv() {
	if f.quiet {
		return
	}
	utils.LogArgs()
	utils.LogNcclpgEnv()
	utils.LogCudaEnv()
	utils.LogNCCLEnv()
}
