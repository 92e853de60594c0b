package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edgard/dukhota/internal/logger"
	"github.com/edgard/dukhota/internal/message"
)

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint FILE",
		Short: "Print the fingerprint of a post",
		Long: `Print the fingerprint of a post described in a YAML or JSON file
("-" reads standard input). Keys: from_id, channel_id, message_id,
from_channel_id, from_message_id, forward_from_id, text, caption, media_ids.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readPost(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Fingerprint())
			return nil
		},
	}
}

func newCompareCmd() *cobra.Command {
	var (
		thresholds = message.DefaultThresholds()
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "compare A B",
		Short: "Decide whether post A carries the same content as post B",
		Long: `Compare two posts described in YAML or JSON files and print the
verdict with the rule that decided it. The rules look at A's properties,
so the order of the arguments can matter.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readPost(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			b, err := readPost(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			opts := []message.Option{message.WithThresholds(thresholds)}
			if verbose {
				opts = append(opts, message.WithObserver(
					message.NewLogObserver(logger.New(cmd.ErrOrStderr(), "debug", false))))
			}

			printVerdict(cmd.OutOrStdout(), a, b, message.NewMatcher(opts...).Compare(a, b))
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&thresholds.Text, "text-threshold", thresholds.Text, "text similarity needed for a match")
	f.Float64Var(&thresholds.ForwardText, "forward-text-threshold", thresholds.ForwardText, "text similarity needed when A is a forward")
	f.Float64Var(&thresholds.MediaText, "media-text-threshold", thresholds.MediaText, "text similarity needed when A has media")
	f.Float64Var(&thresholds.Media, "media-threshold", thresholds.Media, "media overlap needed for a match")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every rule evaluation to stderr")
	return cmd
}

func printVerdict(w io.Writer, a, b *message.Message, v message.Verdict) {
	var result *color.Color
	switch v.Result {
	case message.Match:
		result = color.New(color.FgGreen, color.Bold)
	case message.NoMatch:
		result = color.New(color.FgYellow)
	default:
		result = color.New(color.FgRed)
	}
	label := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", label("verdict:    "), result.Sprint(v.Result))
	if v.Result == message.Match {
		fmt.Fprintf(w, "%s %s\n", label("rule:       "), v.Rule)
	}
	fmt.Fprintf(w, "%s %.2f\n", label("text ratio: "), v.TextRatio)
	fmt.Fprintf(w, "%s %.2f\n", label("media ratio:"), v.MediaRatio)
	fmt.Fprintf(w, "%s %s %s\n", label("fingerprint:"), a.Fingerprint(), b.Fingerprint())
}

// readPost decodes a post file; JSON input is accepted as YAML.
func readPost(stdin io.Reader, path string) (*message.Message, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read post %s: %w", path, err)
	}

	var attrs message.Attributes
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&attrs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse post %s: %w", path, err)
	}

	msg, err := message.New(attrs)
	if err != nil {
		return nil, fmt.Errorf("invalid post %s: %w", path, err)
	}
	return msg, nil
}
