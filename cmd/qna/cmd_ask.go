package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"qna-agents/internal/answer"
	"qna-agents/internal/presenter"
	"qna-agents/internal/session"
)

type askOptions struct {
	paragraph string
	file      string
	question  string
	all       bool
	json      bool
}

type askResult struct {
	presenter.Summary
	Answers []answer.Candidate `json:"answers,omitempty"`
}

func newAskCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer a question about a paragraph",
		Long: `Answer a question about a paragraph using the configured inference provider.

The paragraph comes from --paragraph, --file, or a built-in sample text.
The backend is chosen by INFERENCE_PROVIDER (openai, onnx or remote).

Examples:
  qna ask
  qna ask -f notes.txt -q "Who founded the company?"
  qna ask -p "Sundar Pichai is the CEO of Google." -q "Who is the CEO?" --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAsk(cmd.Context(), opts, stdout, stderr)
		},
	}
	cmd.Flags().StringVarP(&opts.paragraph, "paragraph", "p", session.DefaultParagraph, "Paragraph to search")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read the paragraph from a text file")
	cmd.Flags().StringVarP(&opts.question, "question", "q", session.DefaultQuestion, "Question to answer")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Show every predicted answer")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("paragraph", "file")
	return cmd
}

func runAsk(ctx context.Context, opts askOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paragraph := opts.paragraph
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("reading paragraph: %w", err)
		}
		paragraph = string(data)
	}

	deps, err := buildDeps(stderr)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	defer deps.Close()

	sessOpts := session.Options{
		Notifier: session.WriterNotifier{W: stderr},
		Log:      deps.Log,
	}
	if deps.Store != nil {
		sessOpts.Recorder = deps.Store
	}
	o := session.New(uuid.New(), deps.Gateway, paragraph, opts.question, sessOpts)
	if !o.Predict(ctx) {
		fmt.Fprintln(stderr, "qna: paragraph and question must be non-empty") //nolint:errcheck // best-effort stderr
		return errExit
	}
	if err := o.Wait(ctx); err != nil {
		return err
	}

	state := o.Snapshot()
	if state.Status == session.StatusFailed {
		// The notifier already reported the message.
		return errExit
	}

	sum := presenter.Summarize(state)
	all, _ := presenter.RevealAll(state)

	if opts.json {
		res := askResult{Summary: sum}
		if opts.all {
			res.Answers = all
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if opts.all {
		sum.CanRevealAll = false
	}
	if err := presenter.WriteSummary(stdout, sum); err != nil {
		return err
	}
	if opts.all && len(all) > 0 {
		fmt.Fprintln(stdout) //nolint:errcheck // best-effort output
		return presenter.WriteAll(stdout, all)
	}
	return nil
}
