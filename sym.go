package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aryanA101a/rvm/vm"
)

type symbols []symbol

type symbol struct {
	addr  vm.Word
	label string
}

func (s symbol) String() string {
	if s.label == "" {
		return fmt.Sprintf("%.4x", s.addr)
	}
	return fmt.Sprintf("%s (%.4x)", s.label, s.addr)
}

// newSymbols returns the labels sorted by address, then by name.
func newSymbols(labels map[string]vm.Word) symbols {
	ss := make(symbols, 0, len(labels))
	for label, addr := range labels {
		ss = append(ss, symbol{addr: addr, label: label})
	}
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].addr != ss[j].addr {
			return ss[i].addr < ss[j].addr
		}
		return ss[i].label < ss[j].label
	})
	return ss
}

func (s symbols) forAddr(addr vm.Word) (ss []symbol) {
	i := sort.Search(len(s), func(i int) bool { return s[i].addr >= addr })
	for ; i < len(s) && s[i].addr == addr; i++ {
		ss = append(ss, s[i])
	}
	return ss
}

func (s symbols) withLabelPrefix(prefix string) (ss []symbol) {
	for _, sym := range s {
		if strings.HasPrefix(sym.label, prefix) {
			ss = append(ss, sym)
		}
	}
	return ss
}

// resolve looks up arg as a label, or parses it as an address: x3000,
// 0x3000 or decimal.
func (s symbols) resolve(arg string) (symbol, bool) {
	for _, sym := range s {
		if sym.label == arg {
			return sym, true
		}
	}
	var (
		digits = arg
		base   = 10
	)
	switch {
	case strings.HasPrefix(arg, "0x"), strings.HasPrefix(arg, "0X"):
		digits, base = arg[2:], 16
	case strings.HasPrefix(arg, "x"), strings.HasPrefix(arg, "X"):
		digits, base = arg[1:], 16
	}
	n, err := strconv.ParseUint(digits, base, 16)
	if err != nil {
		return symbol{}, false
	}
	addr := vm.Word(n)
	if ss := s.forAddr(addr); len(ss) > 0 {
		return ss[0], true
	}
	return symbol{addr: addr}, true
}
