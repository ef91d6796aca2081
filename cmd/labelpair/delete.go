package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <date1-image> <date2-image>",
	Short: "Remove the label file of an image pair",
	Long: `Delete the label file that belongs to an image pair. The images are not
touched. Nothing is removed when the pair has no label file.

Examples:
  labelpair delete site.d1.jpg site.d2.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	labeler, err := newLabeler()
	if err != nil {
		return err
	}
	s, err := labeler.OpenPair(args[0], args[1])
	if err != nil {
		return err
	}
	defer s.Discard()

	path := s.Filename()
	if path == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "No label file for %s\n", args[0])
		return nil
	}
	if err := s.DeleteLabelFile(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
	return nil
}
