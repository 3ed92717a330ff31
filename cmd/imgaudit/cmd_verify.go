package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ochairo/imgaudit/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/imgaudit/internal/domain-orchestrators"
	"github.com/ochairo/imgaudit/internal/external-adapters/gpg"
)

var errVerificationFailed = errors.New("verification failed")

type verifyOptions struct {
	reportDir string
	image     string
	timestamp string
	keyring   string
	noColor   bool
}

func newVerifyCmd() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify checksums and signatures of a scan's report artifacts",
		Example: `  # Check artifacts against the checksum manifest
  imgaudit verify --reports reports --image core-image-minimal --timestamp 20260101120000

  # Also check every detached signature
  imgaudit verify --reports reports --image core-image-minimal --timestamp 20260101120000 --keyring pubkey.asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.reportDir, "reports", "", "Report directory of the scan")
	f.StringVar(&opts.image, "image", "", "Image name of the scan")
	f.StringVar(&opts.timestamp, "timestamp", "", "Timestamp of the scan")
	f.StringVar(&opts.keyring, "keyring", "", "Armored or binary OpenPGP public keyring")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	_ = cmd.MarkFlagRequired("reports")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("timestamp")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *verifyOptions) error {
	out := newPrinter(cmd.OutOrStdout(), opts.noColor)
	manifestPath := orchestrators.ManifestPath(opts.reportDir, opts.image, opts.timestamp)
	manifest := gateways.NewChecksumManifest()

	out.printf("🔍 Verifying %s\n\n", filepath.Base(manifestPath))

	files, err := manifest.Files(manifestPath)
	if err != nil {
		return err
	}

	failed, err := manifest.Verify(cmd.Context(), manifestPath)
	if err != nil {
		return err
	}
	bad := make(map[string]bool, len(failed))
	for _, f := range failed {
		bad[f] = true
	}

	verified, failures := 0, 0
	record := func(ok bool, label string, err error) {
		out.check(ok, label, err)
		if ok {
			verified++
		} else {
			failures++
		}
	}

	for _, f := range files {
		name := filepath.Base(f)
		record(!bad[name], "checksum "+name, errors.New("checksum mismatch"))
	}

	if opts.keyring != "" {
		v := gpg.NewVerifier()
		if err := v.ImportKeyFromFile(opts.keyring); err != nil {
			return err
		}
		for _, f := range append(files, manifestPath) {
			sig := f + gpg.SignatureSuffix
			if _, err := os.Stat(sig); err != nil {
				record(false, "signature "+filepath.Base(sig), fmt.Errorf("missing signature"))
				continue
			}
			err := v.VerifySignatureFromFile(f, sig)
			record(err == nil, "signature "+filepath.Base(sig), err)
		}
	}

	out.printf("\n%s\n", separator)
	out.printf("✅ Verified: %d checks\n", verified)
	if failures > 0 {
		out.printf("❌ Failed: %d checks\n", failures)
	}
	out.printf("%s\n", separator)

	if failures > 0 {
		return fmt.Errorf("%w: %d of %d checks", errVerificationFailed, failures, verified+failures)
	}
	return nil
}
