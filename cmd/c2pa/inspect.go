package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.jpg|file.c2pa> ...",
	Short: "Dump the box tree and claim of a C2PA store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, inName := range args {
			store, _, _, err := loadAsset(inName)
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Printf("%s: no C2PA manifest found\n", inName)
				continue
			}
			fmt.Print(store.DumpTree())
			enc, err := json.MarshalIndent(store.ToJSON(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(enc))
		}
		return nil
	},
}
