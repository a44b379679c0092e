package main

import (
	"crypto/x509"

	"github.com/spf13/cobra"

	"github.com/signedmedia/c2pa-go/internal/api"
	"github.com/signedmedia/c2pa-go/internal/certprofile"
)

var (
	serveAddr  string
	serveTrust string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve manifest verification over HTTP",
	Long: `Run an HTTP server exposing manifest verification and inspection:

  GET  /health          liveness
  POST /api/v1/verify   body: JPEG or raw store; returns the status list
  POST /api/v1/inspect  body: JPEG or raw store; returns the store projection

Examples:
  c2pa serve --addr :8017
  c2pa serve --addr :8017 --trust anchors.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var anchors []*x509.Certificate
		if serveTrust != "" {
			var err error
			anchors, err = certprofile.LoadTrustFile(serveTrust)
			if err != nil {
				return err
			}
		}
		return api.Serve(&api.Config{Addr: serveAddr, Anchors: anchors})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8017", "Listen address")
	serveCmd.Flags().StringVar(&serveTrust, "trust", "", "YAML trust-anchor configuration")
}
