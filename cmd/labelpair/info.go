package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/menta2k/pair-labeler/pkg/session"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <label.json>",
	Short: "Summarize a label file",
	Long: `Load a label file with its images and print a summary:
  - image paths and effective size
  - whether image data is embedded
  - shape counts per label and per type
  - image-level flags and unrecognized keys
  - dimension mismatches between the file and its images

Examples:
  labelpair info site.json
  labelpair info site.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output as JSON")
}

type labelSummary struct {
	File        string          `json:"file"`
	Version     string          `json:"version"`
	Date1       string          `json:"date1"`
	Date2       string          `json:"date2"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Embedded    bool            `json:"embedded"`
	Shapes      int             `json:"shapes"`
	ByLabel     map[string]int  `json:"by_label"`
	ByType      map[string]int  `json:"by_type"`
	Flags       map[string]bool `json:"flags"`
	OtherKeys   []string        `json:"other_keys"`
	Diagnostics []string        `json:"diagnostics"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	labeler, err := newLabeler()
	if err != nil {
		return err
	}
	s, err := labeler.OpenLabelFile(args[0])
	if err != nil {
		return err
	}
	defer s.Discard()

	summary := summarize(s)
	out := cmd.OutOrStdout()
	if infoJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(out, summary)
	return nil
}

func summarize(s *session.Session) labelSummary {
	lf := s.LabelFile()
	date1, date2 := s.ImagePaths()
	width, height := s.Size()
	other := s.OtherData()

	summary := labelSummary{
		File:        s.Filename(),
		Version:     lf.Version,
		Date1:       date1,
		Date2:       date2,
		Width:       width,
		Height:      height,
		Embedded:    lf.Embedded,
		ByLabel:     map[string]int{},
		ByType:      map[string]int{},
		Flags:       s.Flags(),
		OtherKeys:   other.Keys(),
		Diagnostics: []string{},
	}
	for _, sh := range s.Shapes() {
		summary.Shapes++
		summary.ByLabel[sh.Label]++
		summary.ByType[string(sh.Type)]++
	}
	for _, d := range s.Diagnostics() {
		summary.Diagnostics = append(summary.Diagnostics, d.String())
	}
	return summary
}

func printSummary(w io.Writer, s labelSummary) {
	fmt.Fprintf(w, "File:      %s\n", s.File)
	fmt.Fprintf(w, "Version:   %s\n", s.Version)
	fmt.Fprintf(w, "Date 1:    %s\n", s.Date1)
	fmt.Fprintf(w, "Date 2:    %s\n", s.Date2)
	fmt.Fprintf(w, "Size:      %dx%d\n", s.Width, s.Height)
	fmt.Fprintf(w, "Embedded:  %v\n", s.Embedded)
	fmt.Fprintf(w, "Shapes:    %d\n", s.Shapes)

	for _, label := range sortedKeys(s.ByLabel) {
		fmt.Fprintf(w, "  %-20s %d\n", label, s.ByLabel[label])
	}
	if len(s.Flags) > 0 {
		fmt.Fprintln(w, "Flags:")
		for _, name := range sortedKeys(s.Flags) {
			fmt.Fprintf(w, "  %-20s %v\n", name, s.Flags[name])
		}
	}
	if len(s.OtherKeys) > 0 {
		fmt.Fprintf(w, "Other keys: %v\n", s.OtherKeys)
	}
	for _, d := range s.Diagnostics {
		fmt.Fprintf(w, "Warning: %s\n", d)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
