package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cognicore/labelrisk/pkg/labelrisk"
)

type inputFlags struct {
	text string
	file string
}

// read returns label text from --text, --file ("-" for stdin) or the
// positional arguments, in that order.
func (in inputFlags) read(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case in.text != "":
		return in.text, nil
	case in.file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(b), nil
	case in.file != "":
		b, err := os.ReadFile(in.file)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", in.file)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", eris.New("provide label text with --text, --file or as arguments")
	}
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var (
		in      inputFlags
		image   string
		userID  string
		asJSON  bool
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Classify the ingredients on a product label",
		RunE: func(cmd *cobra.Command, args []string) error {
			var imageBytes []byte
			var text string
			if image != "" {
				b, err := os.ReadFile(image)
				if err != nil {
					return eris.Wrapf(err, "read %s", image)
				}
				imageBytes = b
			} else {
				t, err := in.read(cmd, args)
				if err != nil {
					return err
				}
				text = t
			}

			return g.withRuntime(cmd.Context(), !noStore, func(rt *runtime) error {
				var (
					v   labelrisk.Verdict
					err error
				)
				if imageBytes != nil {
					v, err = rt.engine.AnalyzeImage(cmd.Context(), imageBytes, userID)
				} else {
					v, err = rt.engine.Analyze(cmd.Context(), labelrisk.AnalyzeRequest{Text: text, UserID: userID})
				}
				if err != nil {
					return err
				}
				if asJSON {
					b, err := json.MarshalIndent(v, "", "  ")
					if err != nil {
						return eris.Wrap(err, "marshal verdict json")
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(b))
					return nil
				}
				printVerdict(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.text, "text", "", "Label text")
	cmd.Flags().StringVar(&in.file, "file", "", "Read label text from file (- for stdin)")
	cmd.Flags().StringVar(&image, "image", "", "Label image to send through OCR")
	cmd.Flags().StringVar(&userID, "user", "", "Save the scan under this user ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the verdict as JSON")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip the database (rules and AI tiers only)")
	return cmd
}

func newTokenizeCmd(g *globalFlags) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "tokenize [text...]",
		Short: "Print the ingredient tokens extracted from label text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd, args)
			if err != nil {
				return err
			}
			return g.withRuntime(cmd.Context(), false, func(rt *runtime) error {
				for _, tok := range rt.engine.Tokenize(text) {
					fmt.Fprintln(cmd.OutOrStdout(), tok)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.text, "text", "", "Label text")
	cmd.Flags().StringVar(&in.file, "file", "", "Read label text from file (- for stdin)")
	return cmd
}

func printVerdict(w io.Writer, v labelrisk.Verdict) {
	fmt.Fprintf(w, "Source: %s\n", v.Source)
	if v.ModelVersion != "" {
		fmt.Fprintf(w, "Model: %s\n", v.ModelVersion)
	}
	fmt.Fprintf(w, "Overall: %s (%s)\n", v.OverallStatus, v.OverallLevel)
	fmt.Fprintf(w, "Summary: safe=%d risky=%d restricted=%d unknown=%d total=%d\n",
		v.Summary.Safe, v.Summary.Risky, v.Summary.Restricted, v.Summary.Unknown, v.Summary.Total)
	if v.ScanID != "" {
		fmt.Fprintf(w, "Scan: %s\n", v.ScanID)
	}
	fmt.Fprintln(w)
	for _, r := range v.Results {
		name := r.Ingredient
		if r.Name != "" && !strings.EqualFold(r.Name, r.Ingredient) {
			name = fmt.Sprintf("%s -> %s", r.Ingredient, r.Name)
		}
		fmt.Fprintf(w, "  %-10s %-40s %s\n", r.Status, name, r.Explanation)
	}
	for _, rec := range v.Recommendations {
		fmt.Fprintf(w, "Recommendation: %s\n", rec)
	}
	fmt.Fprintf(w, "\n%s\n", v.Disclaimer)
}
