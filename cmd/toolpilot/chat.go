package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
	"github.com/jonwraymond/toolpilot/runtime"
)

var (
	chatAutoApprove bool
	chatProfile     string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session in the terminal",
	Long: `Read instructions from the terminal and run them in one session.
Type "history" to list the recorded rounds and "exit" to quit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		configure := func(o *exec.Options) {
			if !chatAutoApprove {
				o.Approve = promptApprover(in, out)
			}
		}
		a, err := loadApp(os.Stderr, runtime.Profile(chatProfile), configure)
		if err != nil {
			return err
		}
		return chat(cmd.Context(), a.exec.NewSession(exec.DefaultSessionID), in, out)
	},
}

func init() {
	chatCmd.Flags().BoolVarP(&chatAutoApprove, "yes", "y", false, "run sensitive tools without asking")
	chatCmd.Flags().StringVar(&chatProfile, "profile", string(runtime.ProfileFull), "execution profile (compact or full)")
}

// chat runs the read-eval-print loop until exit, EOF or ctx is done.
func chat(ctx context.Context, sess *exec.Session, in *bufio.Scanner, out io.Writer) error {
	fmt.Fprintln(out, "toolpilot chat. Type \"exit\" to quit.")
	for {
		fmt.Fprint(out, "\n> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "history":
			printHistory(out, sess.History())
			continue
		}

		outcome, err := sess.RunInstruction(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			if errors.Is(err, dialogue.ErrConfiguration) {
				fmt.Fprintln(out, "Set TOOLPILOT_MODEL_API_KEY (or DEEPSEEK_API_KEY) and restart.")
			}
			continue
		}
		printOutcome(out, outcome)
	}
}

func printOutcome(out io.Writer, o exec.Outcome) {
	if !o.Executed {
		fmt.Fprintln(out, o.Response)
		return
	}
	fmt.Fprintf(out, "$ %s\n%s\n", o.Command, o.Output)
	if o.Analysis != "" {
		fmt.Fprintf(out, "\nAnalysis:\n%s\n", o.Analysis)
	}
}

func printHistory(out io.Writer, entries []exec.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history yet.")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, e.Timestamp.Format("15:04:05"), e.Instruction)
		if e.Executed {
			fmt.Fprintf(out, "   $ %s\n", e.Command)
		}
	}
}

// promptApprover asks on the terminal before a sensitive capability runs.
func promptApprover(in *bufio.Scanner, out io.Writer) exec.Approver {
	return func(_ context.Context, d capability.Descriptor, call dialogue.ToolCallRequest) error {
		fmt.Fprintf(out, "Run sensitive tool: %s %s ? [y/N] ", d.Name, call.Arguments())
		if !in.Scan() {
			return errors.New("no answer")
		}
		switch strings.ToLower(strings.TrimSpace(in.Text())) {
		case "y", "yes":
			return nil
		default:
			return errors.New("declined by operator")
		}
	}
}
