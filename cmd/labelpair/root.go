package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	labelpair "github.com/menta2k/pair-labeler"
	"github.com/menta2k/pair-labeler/internal/config"
	"github.com/menta2k/pair-labeler/internal/utils"
)

var (
	cfgFile   string
	appFs     afero.Fs = afero.NewOsFs()
	appConfig          = config.Default()
	logger             = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "labelpair",
	Short: "Inspect and maintain label files for image pairs",
	Long: `labelpair works with the JSON label files that annotate pairs of
images of the same scene taken at two dates.

A label file sits next to its images and is named after the first image,
up to its first dot: site.d1.jpg and site.d2.jpg are labelled in site.json.`,
	Version:           labelpair.Version,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
}

// Execute runs the root command
func Execute() {
	err := rootCmd.Execute()
	utils.Sync(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/labelpair/config.yaml)")
}

func initApp(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" && utils.FileExists(appFs, config.GetConfigPath()) {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(appFs, path)
	if err != nil {
		return err
	}
	l, err := utils.NewLogger(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appConfig = cfg
	logger = l
	if path != "" {
		logger.Debug("using config file", zap.String("path", path))
	}
	return nil
}

// newLabeler builds a Labeler from the loaded configuration
func newLabeler() (*labelpair.Labeler, error) {
	opts, err := appConfig.SessionOptions()
	if err != nil {
		return nil, err
	}
	labeler := labelpair.NewWithOptions(appFs, opts, logger)
	labeler.SetKeepPrevious(appConfig.Canvas.KeepPrevious)
	return labeler, nil
}
