package base

import "fmt"

type OP int32

const (
	SUM OP = iota
	MIN
	MAX
	PROD
)

var opNames = map[OP]string{
	SUM:  "sum",
	MIN:  "min",
	MAX:  "max",
	PROD: "prod",
}

func (op OP) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int32(op))
}

// Set implements flag.Value::Set
func (op *OP) Set(val string) error {
	for k, v := range opNames {
		if v == val {
			*op = k
			return nil
		}
	}
	return fmt.Errorf("invalid op %q", val)
}
