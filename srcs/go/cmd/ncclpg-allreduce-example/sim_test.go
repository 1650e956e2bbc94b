//go:build !cuda

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_run(t *testing.T) {
	*np, *devices, *count, *steps = 3, 2, 16, 2
	assert.NoError(t, run())
}
