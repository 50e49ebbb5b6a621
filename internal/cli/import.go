package cli

import (
	"archive/tar"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

// newImportCommand restores a dataset directory from an archive produced
// by "ldlookup export". The destination directory must not already
// exist; a dataset directory is created exactly once and never
// overwritten in place.
func newImportCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <archive.tar.zst> <dataset-dir>",
		Short: "Restore a dataset directory from a .tar.zst archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, datasetDir := args[0], args[1]
			log := logger.With("component", "cli.import", "archive", archivePath)

			if _, err := os.Stat(datasetDir); err == nil {
				return fmt.Errorf("dataset directory %q already exists", datasetDir)
			}

			in, err := os.Open(archivePath)
			if err != nil {
				return fmt.Errorf("open %q: %w", archivePath, err)
			}
			defer in.Close()

			dec, err := zstd.NewReader(in)
			if err != nil {
				return fmt.Errorf("new zstd reader: %w", err)
			}
			defer dec.Close()

			if err := os.MkdirAll(datasetDir, 0o755); err != nil {
				return fmt.Errorf("create %q: %w", datasetDir, err)
			}

			tr := tar.NewReader(dec)
			for {
				hdr, err := tr.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("read tar entry: %w", err)
				}
				if hdr.Typeflag != tar.TypeReg {
					continue
				}

				destPath := filepath.Join(datasetDir, filepath.Base(hdr.Name))
				outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
				if err != nil {
					return fmt.Errorf("create %q: %w", destPath, err)
				}
				if _, err := io.Copy(outFile, tr); err != nil {
					outFile.Close()
					return fmt.Errorf("write %q: %w", destPath, err)
				}
				outFile.Close()
			}

			log.Info("dataset imported", "dir", datasetDir)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s -> %s\n", archivePath, datasetDir)
			return nil
		},
	}
	return cmd
}
