package main

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signedmedia/c2pa-go/internal/audit"
	"github.com/signedmedia/c2pa-go/internal/c2pa"
	"github.com/signedmedia/c2pa-go/internal/jpeg"
	"github.com/signedmedia/c2pa-go/internal/keystore"
)

var (
	signKeystore     string
	signPassword     string
	signAlias        string
	signKeyPath      string
	signCertsPath    string
	signAlg          string
	signCreativeWork string
	signOut          string
	signC2PADump     string
	signRepackage    bool
	signDebug        bool
	signBoxDebug     bool
)

var signCmd = &cobra.Command{
	Use:   "sign <file.jpg>",
	Short: "Sign a JPEG with a new C2PA manifest",
	Long: `Sign a JPEG: build a store with one manifest carrying a data-hash hard
binding (plus optional creative-work and repackage assertions), sign the
claim with the keystore identity, and embed the store as APP11 segments.

The identity comes from a PKCS#12 keystore (--keystore/--password) or from
PEM files (--key/--certs). JKS and JCEKS keystores are detected and rejected
with a conversion hint.

Signing with validation errors still writes the output file and reports them.

Examples:
  c2pa sign photo.jpg --keystore identity.p12 --password secret
  c2pa sign photo.jpg --key signer.key --certs chain.pem --alg sha384
  c2pa sign photo.jpg --keystore identity.p12 --password secret \
    --creativework work.json --repackage --out signed.jpg --c2pa store.c2pa`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVar(&signKeystore, "keystore", "", "PKCS#12 keystore with the signing identity")
	signCmd.Flags().StringVar(&signPassword, "password", "", "Keystore password")
	signCmd.Flags().StringVar(&signAlias, "alias", "", "Keystore alias (informational; PKCS#12 stores carry one chain)")
	signCmd.Flags().StringVar(&signKeyPath, "key", "", "PEM private key (alternative to --keystore)")
	signCmd.Flags().StringVar(&signCertsPath, "certs", "", "PEM certificate chain (with --key)")
	signCmd.Flags().StringVar(&signAlg, "alg", "", "Hash algorithm (sha256, sha384, sha512)")
	signCmd.Flags().StringVar(&signCreativeWork, "creativework", "", "JSON file embedded as a stds.schema-org.CreativeWork assertion")
	signCmd.Flags().StringVar(&signOut, "out", "", "Output file (default derives from the input name)")
	signCmd.Flags().StringVar(&signC2PADump, "c2pa", "", "Also write the raw store to this file")
	signCmd.Flags().BoolVar(&signRepackage, "repackage", false, "Wrap an existing manifest as a parentOf ingredient with a c2pa.repackaged action")
	signCmd.Flags().BoolVar(&signDebug, "debug", false, "Dump the store projection as JSON")
	signCmd.Flags().BoolVar(&signBoxDebug, "boxdebug", false, "Dump the store box tree")
	_ = signCmd.MarkFlagFilename("keystore")
	_ = signCmd.MarkFlagFilename("creativework", "json")
}

func loadIdentity() (*keystore.Identity, error) {
	if signKeyPath != "" || signCertsPath != "" {
		if signKeyPath == "" || signCertsPath == "" {
			return nil, fmt.Errorf("--key and --certs must be used together")
		}
		return keystore.LoadPEM(signKeyPath, signCertsPath)
	}
	if signKeystore == "" {
		return nil, fmt.Errorf("a signing identity is required (--keystore or --key/--certs)")
	}
	return keystore.Load(signKeystore, signPassword)
}

func newUUIDURN() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("urn:uuid:%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func runSign(cmd *cobra.Command, args []string) error {
	identity, err := loadIdentity()
	if err != nil {
		return err
	}

	for _, inName := range args {
		outName := signOut
		if outName == "" {
			outName = derivedOutputName(inName)
		}

		prior, img, asset, err := loadAsset(inName)
		if err != nil {
			return err
		}
		if img == nil {
			return fmt.Errorf("%s is not a JPEG", inName)
		}
		img.XMP = []byte{}

		store := c2pa.NewStore()
		manifest, err := c2pa.NewManifest(newUUIDURN())
		if err != nil {
			return err
		}
		if err := store.AppendManifest(manifest); err != nil {
			return err
		}
		claim := manifest.Claim()
		claim.SetInstanceID(newUUIDURN())
		claim.SetFormat("image/jpeg")
		if signAlg != "" {
			if err := claim.SetAlg(signAlg); err != nil {
				return err
			}
		}
		hard, err := c2pa.NewDataHashAssertion()
		if err != nil {
			return err
		}
		if err := manifest.AddAssertion(hard); err != nil {
			return err
		}
		if signCreativeWork != "" {
			raw, err := os.ReadFile(signCreativeWork)
			if err != nil {
				return fmt.Errorf("reading creative work: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s is not valid JSON", signCreativeWork)
			}
			schema, err := c2pa.NewSchemaAssertion("stds.schema-org.CreativeWork", raw)
			if err != nil {
				return err
			}
			if err := manifest.AddAssertion(schema); err != nil {
				return err
			}
		}
		manifest.Signature().SetSigner(identity.Key, identity.Chain)

		if signRepackage && prior != nil {
			priorManifest := prior.ActiveManifest()
			if priorManifest == nil {
				return fmt.Errorf("%s has a store with no manifest", inName)
			}
			priorManifest.SetInputStream(bytes.NewReader(asset))
			priorStatus, err := priorManifest.Signature().Verify(nil)
			if err != nil {
				return fmt.Errorf("verifying prior manifest: %w", err)
			}
			if err := c2pa.Repackage(manifest, prior, priorStatus); err != nil {
				return err
			}
		}

		out, err := os.Create(outName)
		if err != nil {
			return err
		}
		statuses, err := jpeg.Write(img, store, out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if signC2PADump != "" {
			if err := os.WriteFile(signC2PADump, img.C2PA, 0o644); err != nil {
				return err
			}
		}
		if signDebug {
			enc, _ := json.MarshalIndent(store.ToJSON(), "", "  ")
			fmt.Println(string(enc))
		}
		if signBoxDebug {
			fmt.Print(store.DumpTree())
		}
		ok := printStatuses(statuses)
		event := audit.NewEvent(audit.EventSign, audit.ResultSuccess)
		if !ok {
			event.Result = audit.ResultFailure
		}
		event.Asset = inName
		event.Manifest = manifest.Label()
		event.Signer = identity.Chain[0].Subject.String()
		for _, st := range statuses {
			if st.IsError() {
				event.Errors++
			}
		}
		if err := audit.Record(event); err != nil {
			return err
		}
		if ok {
			fmt.Printf("%s: SIGNED, wrote to %q\n", inName, outName)
		} else {
			fmt.Printf("%s: SIGNED WITH ERRORS, wrote to %q\n", inName, outName)
		}
	}
	return nil
}
