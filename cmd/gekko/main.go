package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gekkodbg/gekko/pkg/config"
	"github.com/gekkodbg/gekko/pkg/logflags"
	"github.com/gekkodbg/gekko/pkg/proc/sim"
	"github.com/gekkodbg/gekko/pkg/terminal"
	"github.com/gekkodbg/gekko/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
)

func main() {
	rootCommand := &cobra.Command{
		Use:   "gekko",
		Short: "gekko is a debugger core for emulated PowerPC processors.",
		Long: `gekko compiles and evaluates breakpoint condition expressions against
the register file and guest memory of an emulated PowerPC processor.

Run without arguments to get an interactive prompt against a simulated
target; attach the packages under pkg/ to a real emulator core to debug
live guest code.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logflags.Setup(log, logOutput)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable component logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (evaluator, parser, repl).")

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gekko debugger\n%s\n%s\n", version.GekkoVersion, version.BuildInfo())
		},
	}
	rootCommand.AddCommand(versionCommand)

	evalCommand := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Compile and evaluate one expression against a fresh simulated target.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := sim.NewTarget()
			cond, err := target.CompileCondition(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", cond.Eval())
			return nil
		},
	}
	rootCommand.AddCommand(evalCommand)

	replCommand := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive prompt against a simulated target.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
	rootCommand.AddCommand(replCommand)

	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRepl() error {
	conf := config.LoadConfig()
	target, _ := sim.NewTarget()
	term, err := terminal.New(target, conf)
	if err != nil {
		return err
	}
	return term.Run()
}
