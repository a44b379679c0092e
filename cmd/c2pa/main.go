// Command c2pa signs, verifies and inspects C2PA provenance manifests in
// JPEG files and raw stores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signedmedia/c2pa-go/internal/audit"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "c2pa",
	Short: "C2PA provenance manifests: sign, verify, inspect",
	Long: `c2pa creates, embeds, extracts and verifies C2PA provenance manifests
(Coalition for Content Provenance and Authenticity, spec v1.2).

A manifest is a signed CBOR claim over a set of assertions (asset hash,
actions, ingredients, creative-work metadata), wrapped in JUMBF boxes and
signed with COSE_Sign1 over an X.509 certificate chain. In JPEG files the
store travels in APP11 marker segments.

Examples:
  # Verify a signed JPEG
  c2pa verify photo.jpg

  # Verify against a trust list
  c2pa verify photo.jpg --trust anchors.yaml

  # Sign a JPEG with a PKCS#12 identity
  c2pa sign photo.jpg --keystore identity.p12 --password secret --out photo-signed.jpg

  # Re-sign a file, folding the existing manifest in as a parent ingredient
  c2pa sign photo.jpg --keystore identity.p12 --password secret --repackage

  # Dump the box tree and claim
  c2pa inspect photo.jpg`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogPath == "" {
			auditLogPath = os.Getenv("C2PA_AUDIT_LOG")
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

// Global flags
var auditLogPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set C2PA_AUDIT_LOG env var)")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
}
