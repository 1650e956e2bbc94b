package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_updatedEnvFrom(t *testing.T) {
	oldEnvs := []string{
		`X=1`,
		`Y=Z=2`,
	}
	newValues := Envs{`X`: "2", `W`: ""}
	newEnvs := updatedEnvFrom(newValues, oldEnvs)
	assert.Equal(t, []string{`W=`, `X=2`, `Y=Z=2`}, newEnvs)
}

func Test_Script(t *testing.T) {
	p := Proc{
		Prog: "./worker",
		Args: []string{"-n", "1 2"},
		Envs: Envs{"NCCLPG_RANK": "1", "CUDA_VISIBLE_DEVICES": "2,3"},
	}
	const want = "env \\\n" +
		"\tCUDA_VISIBLE_DEVICES=\"2,3\" \\\n" +
		"\tNCCLPG_RANK=\"1\" \\\n" +
		"\t./worker \\\n" +
		"\t\"-n\" \\\n" +
		"\t\"1 2\"\n"
	assert.Equal(t, want, p.Script())
}

func Test_Envs(t *testing.T) {
	e := Envs{"A": "1"}
	e.AddIfMissing("A", "2")
	e.AddIfMissing("B", "3")
	assert.Equal(t, Envs{"A": "1", "B": "3"}, e)
	assert.Equal(t, Envs{"A": "4", "B": "3"}, Merge(e, Envs{"A": "4"}))
}
