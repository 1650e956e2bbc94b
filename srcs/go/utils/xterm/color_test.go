package xterm

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Color(t *testing.T) {
	assert.Equal(t, "\x1b[1;32mok\x1b[m", Green.S("ok"))
	assert.Equal(t, "\x1b[1;31mE\x1b[m", Warn.S("E"))
	assert.Equal(t, "ok", NoColor.S("ok"))
	assert.Equal(t, Color(Green), RankColors.Choose(5))
}

func Test_ForFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	assert.NoError(t, err)
	defer f.Close()
	assert.Equal(t, NoColor, For(f, Green))
}
