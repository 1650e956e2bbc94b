package utils

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

func LogArgs() {
	for i, a := range os.Args {
		fmt.Printf("[arg] [%d]=%s\n", i, a)
	}
}

func LogEnvWithPrefix(prefix string, logPrefix string) {
	envs := os.Environ()
	sort.Strings(envs)
	for _, kv := range envs {
		if strings.HasPrefix(kv, prefix) {
			fmt.Printf("[%s]: %s\n", logPrefix, kv)
		}
	}
}

func LogCudaEnv() {
	LogEnvWithPrefix(`CUDA_`, `cuda-env`)
}

func LogNCCLEnv() {
	LogEnvWithPrefix(`NCCL_`, `nccl-env`)
}

func LogNcclpgEnv() {
	LogEnvWithPrefix(`NCCLPG_`, `ncclpg-env`)
}

func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	d := time.Since(t0)
	return d, err
}

// Poll calls f every pollPeriod until it returns true or ctx is done. It
// returns the number of calls that returned false.
func Poll(ctx context.Context, f func() bool) (int, bool) {
	return PollEvery(ctx, pollPeriod, f)
}

const pollPeriod = 10 * time.Millisecond

func PollEvery(ctx context.Context, p time.Duration, f func() bool) (int, bool) {
	tk := time.NewTicker(p)
	defer tk.Stop()
	for failed := 0; ; failed++ {
		if f() {
			return failed, true
		}
		if ctx.Err() != nil {
			return failed + 1, false
		}
		select {
		case <-ctx.Done():
			return failed + 1, false
		case <-tk.C:
		}
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func Pluralize(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, pluralize(n, singular, plural))
}
