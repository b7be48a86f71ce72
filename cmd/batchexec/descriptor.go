package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/clydemeng/taskexec/core/param"
	"github.com/clydemeng/taskexec/core/vm"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

var (
	dumpFlag = &cli.BoolFlag{
		Name:  "dump",
		Usage: "Dump the decoded descriptor structure",
	}
	kindFlag = &cli.StringFlag{
		Name:  "kind",
		Usage: `Call kind, "delegate" or "call"`,
		Value: "delegate",
	}
	staticFlag = &cli.BoolFlag{
		Name:  "static",
		Usage: "Encode the static fast path descriptor",
	}
	captureFlag = &cli.UintFlag{
		Name:  "capture",
		Usage: "Number of return words to capture",
	}
	pairFlag = &cli.StringSliceFlag{
		Name:  "pair",
		Usage: "Replacement pair as offset:index, repeatable",
	}
	referencesFlag = &cli.IntFlag{
		Name:  "references",
		Usage: "Reference count, defaults to the number of pairs",
		Value: -1,
	}
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Decode a 32 byte config descriptor",
	ArgsUsage: "<hex>",
	Flags:     []cli.Flag{dumpFlag},
	Action:    decodeDescriptor,
}

var encodeCommand = &cli.Command{
	Name:   "encode",
	Usage:  "Encode a config descriptor",
	Flags:  []cli.Flag{kindFlag, staticFlag, captureFlag, pairFlag, referencesFlag},
	Action: encodeDescriptor,
}

func decodeDescriptor(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need exactly one descriptor")
	}
	raw, err := hexutil.Decode(ctx.Args().First())
	if err != nil {
		return err
	}
	if len(raw) != common.HashLength {
		return fmt.Errorf("descriptor is %d bytes, want %d", len(raw), common.HashLength)
	}
	d, err := param.Parse(common.BytesToHash(raw))
	if err != nil {
		return err
	}
	if ctx.Bool(dumpFlag.Name) {
		spew.Fdump(ctx.App.Writer, d)
		return nil
	}
	w := ctx.App.Writer
	table := newTable(w, "Field", "Value")
	table.AppendBulk([][]string{
		{"static", strconv.FormatBool(d.Static)},
		{"kind", d.Kind.String()},
		{"capture", fmt.Sprint(d.CaptureWords)},
		{"replace", fmt.Sprint(d.ReplaceCount)},
		{"reference", fmt.Sprint(d.ReferenceCount)},
	})
	table.Render()

	if len(d.Pairs) > 0 {
		pairs := newTable(w, "#", "Offset", "Index", "Payload byte")
		for i, p := range d.Pairs {
			pairs.Append([]string{
				fmt.Sprint(i),
				fmt.Sprint(p.Offset),
				fmt.Sprint(p.Index),
				fmt.Sprint(vm.SelectorSize + int(p.Offset)*vm.WordSize),
			})
		}
		pairs.Render()
	}
	return nil
}

func encodeDescriptor(ctx *cli.Context) error {
	kind, err := (&actionConfig{Kind: ctx.String(kindFlag.Name)}).kind()
	if err != nil {
		return err
	}
	capture := ctx.Uint(captureFlag.Name)
	if capture > 0xffff {
		return fmt.Errorf("capture %d does not fit 16 bits", capture)
	}
	d := &param.Descriptor{Static: ctx.Bool(staticFlag.Name), Kind: kind, CaptureWords: uint16(capture)}
	for _, arg := range ctx.StringSlice(pairFlag.Name) {
		p, err := parsePair(arg)
		if err != nil {
			return err
		}
		d.Pairs = append(d.Pairs, p)
	}
	d.ReferenceCount = uint8(len(d.Pairs))
	if refs := ctx.Int(referencesFlag.Name); refs >= 0 {
		if refs > param.MaxCount {
			return fmt.Errorf("reference count %d, max %d", refs, param.MaxCount)
		}
		d.ReferenceCount = uint8(refs)
	}
	cfg, err := param.Encode(d)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, cfg.Hex())
	return nil
}

func parsePair(arg string) (param.Pair, error) {
	off, idx, ok := strings.Cut(arg, ":")
	if !ok {
		return param.Pair{}, fmt.Errorf("pair %q is not offset:index", arg)
	}
	o, err := strconv.ParseUint(off, 10, 8)
	if err != nil {
		return param.Pair{}, fmt.Errorf("pair %q offset: %w", arg, err)
	}
	i, err := strconv.ParseUint(idx, 10, 8)
	if err != nil {
		return param.Pair{}, fmt.Errorf("pair %q index: %w", arg, err)
	}
	return param.Pair{Offset: uint8(o), Index: uint8(i)}, nil
}
