// Command corevm is a small diagnostic front end for the value and
// statepoint packages: it dumps a stackmap's frame table and evaluates
// tiny postfix expressions over the tagged value representation.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"corevm/internal/slowpath"
	"corevm/statepoint"
	"corevm/value"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: corevm <dump|eval> [args]")
	fmt.Fprintln(os.Stderr, "  corevm dump [-skip-empty] [-debug] <stackmap-file>")
	fmt.Fprintln(os.Stderr, "  corevm eval <postfix-expr>")
}

func main() {
	// Critical errors (a malformed blob that slips past Build's checks, a
	// bad token that panics mid-eval) unwind through here rather than
	// leaving a half-printed result on stdout.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "corevm: critical error:", r)
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dump":
		runDump(os.Args[2:])
	case "eval":
		runEval(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func runDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	skipEmpty := fs.Bool("skip-empty", false, "omit buckets with no frames from the listing")
	debug := fs.Bool("debug", false, "log discarded non-indirect root location pairs")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	blob, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "corevm: reading stackmap:", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	table, err := statepoint.BuildWithLogger(blob, 2.0, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "corevm: parsing stackmap:", err)
		os.Exit(1)
	}
	defer table.Close()

	table.Dump(os.Stdout, *skipEmpty)
}

// runEval evaluates a whitespace-separated postfix expression over
// value.Value, using slowpath.Default for anything the fast path can't
// resolve on its own. Recognized tokens: integer and float literals,
// true, false, null, undefined, and the operators add sub mul div mod
// lsh rsh eq neq lt lte gt gte not neg.
func runEval(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}

	slow := slowpath.Default{}
	var stack []value.Value

	pop := func() value.Value {
		if len(stack) == 0 {
			panic("eval: stack underflow")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top
	}
	push := func(v value.Value) { stack = append(stack, v) }

	for _, tok := range strings.Fields(args[0]) {
		switch tok {
		case "true":
			push(value.ValueTrue)
		case "false":
			push(value.ValueFalse)
		case "null":
			push(value.ValueNull)
		case "undefined":
			push(value.ValueUndefined)
		case "add":
			b, a := pop(), pop()
			push(value.Add(a, b, slow))
		case "sub":
			b, a := pop(), pop()
			push(value.Sub(a, b, slow))
		case "mul":
			b, a := pop(), pop()
			push(value.Mul(a, b, slow))
		case "div":
			b, a := pop(), pop()
			push(value.Div(a, b, slow))
		case "mod":
			b, a := pop(), pop()
			push(value.Mod(a, b, slow))
		case "lsh":
			b, a := pop(), pop()
			push(value.Lsh(a, b, slow))
		case "rsh":
			b, a := pop(), pop()
			push(value.Rsh(a, b, slow))
		case "eq":
			b, a := pop(), pop()
			push(value.Eq(a, b, slow))
		case "neq":
			b, a := pop(), pop()
			push(value.Neq(a, b, slow))
		case "lt":
			b, a := pop(), pop()
			push(value.Lt(a, b, slow))
		case "lte":
			b, a := pop(), pop()
			push(value.Lte(a, b, slow))
		case "gt":
			b, a := pop(), pop()
			push(value.Gt(a, b, slow))
		case "gte":
			b, a := pop(), pop()
			push(value.Gte(a, b, slow))
		case "not":
			push(value.Not(pop(), slow))
		case "neg":
			push(value.Neg(pop(), slow))
		default:
			push(parseLiteral(tok))
		}
	}

	if len(stack) != 1 {
		fmt.Fprintf(os.Stderr, "corevm: expression left %d values on the stack, expected 1\n", len(stack))
		os.Exit(1)
	}
	fmt.Println(stack[0].String())
}

func parseLiteral(tok string) value.Value {
	if i, err := strconv.ParseInt(tok, 10, 32); err == nil {
		return value.NewInt32(int32(i))
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return value.NewDouble(f)
	}
	panic(fmt.Sprintf("eval: unrecognized token %q", tok))
}
