package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidHostSpec = errors.New("invalid HostSpec")

// HostSpec is a host that can run Slots ranks. PublicAddr is used to reach
// it over ssh.
type HostSpec struct {
	IPv4       uint32
	Slots      int
	PublicAddr string
}

var DefaultHostSpec = HostSpec{
	IPv4:       MustParseIPv4(`127.0.0.1`),
	Slots:      1,
	PublicAddr: `127.0.0.1`,
}

func (h HostSpec) String() string {
	return fmt.Sprintf("%s:%d:%s", FormatIPv4(h.IPv4), h.Slots, h.PublicAddr)
}

// ParseHostSpec parses <ip>[:<slots>[:<public addr>]].
func ParseHostSpec(spec string) (*HostSpec, error) {
	parts := strings.Split(spec, ":")
	ipv4, err := ParseIPv4(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%v: %q", err, parts[0])
	}
	h := &HostSpec{IPv4: ipv4, Slots: 1, PublicAddr: parts[0]}
	switch len(parts) {
	case 1:
		return h, nil
	case 3:
		h.PublicAddr = parts[2]
		fallthrough
	case 2:
		slots, err := strconv.Atoi(parts[1])
		if err != nil || slots < 0 {
			return nil, errInvalidHostSpec
		}
		h.Slots = slots
		return h, nil
	}
	return nil, errInvalidHostSpec
}

type HostList []HostSpec

var DefaultHostList = HostList{DefaultHostSpec}

func (hl HostList) String() string {
	var ss []string
	for _, h := range hl {
		ss = append(ss, h.String())
	}
	return strings.Join(ss, ",")
}

func ParseHostList(hostlist string) (HostList, error) {
	var hl HostList
	for _, h := range strings.Split(hostlist, ",") {
		spec, err := ParseHostSpec(h)
		if err != nil {
			return nil, err
		}
		hl = append(hl, *spec)
	}
	return hl, nil
}

func (hl HostList) Cap() int {
	var cap int
	for _, h := range hl {
		cap += h.Slots
	}
	return cap
}

// AllLocal reports whether every host is this machine.
func (hl HostList) AllLocal() bool {
	for _, h := range hl {
		if !IsLocal(h.IPv4) {
			return false
		}
	}
	return true
}
