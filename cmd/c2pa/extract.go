package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract <file.jpg>",
	Short: "Extract the raw C2PA store from a JPEG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if extractOut == "" {
			return fmt.Errorf("--out is required")
		}
		store, _, _, err := loadAsset(args[0])
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("%s has no C2PA manifest", args[0])
		}
		if err := dumpStore(store, extractOut); err != nil {
			return err
		}
		fmt.Printf("%s: wrote store to %q\n", args[0], extractOut)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOut, "out", "", "Output file for the raw store")
}
