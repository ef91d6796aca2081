package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	resaveOutput string
	resaveEmbed  bool
	resaveStrip  bool
)

var resaveCmd = &cobra.Command{
	Use:   "resave <label.json>",
	Short: "Load and save a label file in the current format",
	Long: `Round-trip a label file through this version: shapes are validated,
declared image sizes are corrected and unrecognized keys are kept.

By default image data stays embedded if it was. --embed adds the image data,
--strip removes it and keeps only the relative image paths; a file that
has no image paths cannot be stripped.

Examples:
  labelpair resave site.json
  labelpair resave site.json --strip
  labelpair resave site.json --embed -o archive/site.json`,
	Args: cobra.ExactArgs(1),
	RunE: runResave,
}

func init() {
	rootCmd.AddCommand(resaveCmd)

	resaveCmd.Flags().StringVarP(&resaveOutput, "output", "o", "", "write to this path instead of overwriting")
	resaveCmd.Flags().BoolVar(&resaveEmbed, "embed", false, "embed image data")
	resaveCmd.Flags().BoolVar(&resaveStrip, "strip", false, "remove embedded image data")
	resaveCmd.MarkFlagsMutuallyExclusive("embed", "strip")
}

func runResave(cmd *cobra.Command, args []string) error {
	if resaveEmbed && resaveStrip {
		return fmt.Errorf("--embed and --strip cannot be used together")
	}

	labeler, err := newLabeler()
	if err != nil {
		return err
	}
	s, err := labeler.OpenLabelFile(args[0])
	if err != nil {
		return err
	}
	defer s.Discard()

	embed := s.LabelFile().Embedded
	switch {
	case resaveEmbed:
		embed = true
	case resaveStrip:
		embed = false
	}
	s.SetStoreData(embed)
	corrected := s.Diagnostics()

	if err := s.Save(resaveOutput); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d shapes, embedded: %v)\n", s.Filename(), len(s.Shapes()), embed)
	for _, d := range corrected {
		fmt.Fprintf(cmd.OutOrStdout(), "Corrected: %s\n", d)
	}
	return nil
}
