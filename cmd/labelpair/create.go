package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/pair-labeler/internal/utils"
)

var (
	createOutput string
	createEmbed  bool
)

var createCmd = &cobra.Command{
	Use:   "create <date1-image> <date2-image>",
	Short: "Write an empty label file for an image pair",
	Long: `Create a label file for two images of the same scene. Both images must
share the base name before their first dot.

The file is written next to the first image, or in output.dir when it is
configured, unless --output is given. Image data is embedded when --embed is
set or image.store_data is enabled.

Examples:
  labelpair create site.d1.jpg site.d2.jpg
  labelpair create site.d1.jpg site.d2.jpg -o labels/site.json --embed`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "label file path")
	createCmd.Flags().BoolVar(&createEmbed, "embed", false, "embed image data in the label file")
}

func runCreate(cmd *cobra.Command, args []string) error {
	date1, date2 := args[0], args[1]

	out := createOutput
	if out == "" {
		out = utils.LabelFileFor(date1, appConfig.Output.Dir)
	}
	if utils.FileExists(appFs, out) {
		return fmt.Errorf("label file %s already exists", out)
	}

	labeler, err := newLabeler()
	if err != nil {
		return err
	}
	s, err := labeler.OpenPair(date1, date2)
	if err != nil {
		return err
	}
	defer s.Discard()

	s.SetStoreData(createEmbed || appConfig.Image.StoreData)
	if err := s.Save(out); err != nil {
		return err
	}

	width, height := s.Size()
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%dx%d, %d shapes)\n", out, width, height, len(s.Shapes()))
	return nil
}
