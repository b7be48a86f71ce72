package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/clydemeng/taskexec/core"
	"github.com/clydemeng/taskexec/core/asset"
	"github.com/clydemeng/taskexec/core/param"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
)

var parallelFlag = &cli.IntFlag{
	Name:  "parallel",
	Usage: "Number of scenarios run concurrently",
	Value: 1,
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run one or more batch scenarios",
	ArgsUsage: "<scenario.toml|scenario.yaml> [...]",
	Flags:     []cli.Flag{parallelFlag},
	Action:    runScenarios,
}

var (
	committedLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	abortedLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// errUnexpectedOutcome is returned when a scenario does not end the way its
// Expect section says.
var errUnexpectedOutcome = errors.New("unexpected outcome")

type runResult struct {
	out bytes.Buffer
	err error
}

func runScenarios(ctx *cli.Context) error {
	files := ctx.Args().Slice()
	if len(files) == 0 {
		return errors.New("no scenario given")
	}
	workers := ctx.Int(parallelFlag.Name)
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		results = make([]runResult, len(files))
		wg      sync.WaitGroup
	)
	for i, file := range files {
		i, file := i, file
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i].err = runScenario(&results[i].out, file)
		}); err != nil {
			wg.Done()
			results[i].err = err
		}
	}
	wg.Wait()

	var failed int
	for i, res := range results {
		ctx.App.Writer.Write(res.out.Bytes())
		if res.err != nil {
			failed++
			fmt.Fprintf(ctx.App.ErrWriter, "%s: %v\n", files[i], res.err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(files))
	}
	return nil
}

// runScenario executes one scenario file and writes its report to w.
func runScenario(w io.Writer, file string) error {
	logger := log.New("run", uuid.New().String(), "scenario", file)

	s, err := loadScenario(file)
	if err != nil {
		return err
	}
	world, err := s.build()
	if err != nil {
		return err
	}
	logger.Debug("Scenario loaded", "actions", world.batch.Len(), "quota", len(world.batch.QuotaAssets))

	fmt.Fprintf(w, "== %s\n", file)
	printActions(w, world)

	touched, execErr := world.exec.ExecuteBatch(core.DelegateEntry(world.exec.Config().Self), world.batch)
	if execErr != nil {
		fmt.Fprintf(w, "%s %v\n", abortedLabel("ABORTED"), execErr)
		var berr *core.BatchError
		if errors.As(execErr, &berr) {
			inner := berr.Innermost()
			fmt.Fprintf(w, "failed at depth %d, action %d (%s), %s\n", inner.Depth, inner.Index, inner.Target.Hex(), inner.Phase)
		}
		logger.Info("Scenario aborted", "err", execErr)
	} else {
		fmt.Fprintf(w, "%s %d assets touched\n", committedLabel("COMMITTED"), len(touched))
		printTouched(w, touched)
		printFees(w, world)
		logger.Info("Scenario committed", "touched", len(touched), "fees", len(world.fees.entries))
	}
	printBalances(w, world)
	return s.Expect.check(execErr)
}

func (e *expectConfig) check(err error) error {
	switch e.Outcome {
	case "", "committed":
		if err != nil {
			return fmt.Errorf("%w: aborted, expected commit", errUnexpectedOutcome)
		}
	case "aborted":
		if err == nil {
			return fmt.Errorf("%w: committed, expected abort", errUnexpectedOutcome)
		}
		if e.Error != "" && !strings.Contains(err.Error(), e.Error) {
			return fmt.Errorf("%w: error %q does not mention %q", errUnexpectedOutcome, err, e.Error)
		}
	default:
		return fmt.Errorf("unknown expected outcome %q", e.Outcome)
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func printActions(w io.Writer, world *world) {
	table := newTable(w, "#", "Target", "Handler", "Descriptor", "Payload")
	for i := 0; i < world.batch.Len(); i++ {
		a := world.batch.Action(i)
		desc := "invalid"
		if d, err := param.Parse(a.Config); err == nil {
			desc = d.String()
		}
		table.Append([]string{
			fmt.Sprint(i),
			a.Target.Hex(),
			world.targets[a.Target],
			desc,
			abbreviate(hexutil.Encode(a.Payload)),
		})
	}
	table.Render()
}

func printTouched(w io.Writer, touched []common.Address) {
	if len(touched) == 0 {
		return
	}
	table := newTable(w, "Touched asset")
	for _, a := range touched {
		table.Append([]string{a.Hex()})
	}
	table.Render()
}

func printFees(w io.Writer, world *world) {
	if len(world.fees.entries) == 0 {
		return
	}
	table := newTable(w, "Fee asset", "Payer", "Amount")
	for _, f := range world.fees.entries {
		table.Append([]string{f.asset.Hex(), f.payer.Hex(), f.amount.Dec()})
	}
	table.Render()
}

func printBalances(w io.Writer, world *world) {
	if len(world.balances) == 0 {
		return
	}
	table := newTable(w, "Asset", "Holder", "Balance")
	for _, b := range world.balances {
		table.Append([]string{b.Asset.Hex(), b.Holder.Hex(), asset.BalanceOf(world.db, b.Asset, b.Holder).Dec()})
	}
	table.Render()
}

func abbreviate(s string) string {
	if len(s) <= 42 {
		return s
	}
	return s[:20] + ".." + s[len(s)-20:]
}
