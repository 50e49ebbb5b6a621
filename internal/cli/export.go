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

// newExportCommand packages a sealed dataset directory's three table
// pairs into one portable .tar.zst archive. Compression is an outer,
// whole-file concern applied only after the VDH files are closed and
// immutable; individual value sequences are never compressed.
func newExportCommand(logger *slog.Logger) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <dataset-dir>",
		Short: "Archive a sealed dataset directory into a single .tar.zst file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetDir := args[0]
			log := logger.With("component", "cli.export", "dir", datasetDir)

			if outPath == "" {
				outPath = filepath.Clean(datasetDir) + ".tar.zst"
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %q: %w", outPath, err)
			}
			defer out.Close()

			enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				return fmt.Errorf("new zstd writer: %w", err)
			}
			defer enc.Close()

			tw := tar.NewWriter(enc)
			defer tw.Close()

			entries, err := os.ReadDir(datasetDir)
			if err != nil {
				return fmt.Errorf("read dataset dir %q: %w", datasetDir, err)
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if err := addFileToArchive(tw, filepath.Join(datasetDir, entry.Name()), entry.Name()); err != nil {
					return err
				}
			}

			log.Info("dataset exported", "archive", outPath)
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s -> %s\n", datasetDir, outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output archive path (default: <dataset-dir>.tar.zst)")
	return cmd
}

func addFileToArchive(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header for %q: %w", path, err)
	}
	hdr.Name = name

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header for %q: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("copy %q into archive: %w", path, err)
	}
	return nil
}
