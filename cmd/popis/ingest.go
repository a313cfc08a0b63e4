package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/imaging"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		category string
		part     string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "ingest <image>",
		Short: "Run a capture through the photo pipeline",
		Long: `Ingest decodes an image, applies its EXIF orientation, scales it to the
configured maximum dimension and re-encodes it as JPEG, exactly as the
server does for uploaded captures. The result is written to --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			info, err := a.cfg.Catalog().Lookup(category)
			if err != nil {
				return err
			}

			res, err := imaging.Ingest(cmd.Context(), raw, a.cfg.Imaging(), info, part)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s -> %dx%d %s (%s)\n", args[0],
				humanize.Bytes(uint64(len(raw))), res.Width, res.Height, res.MIME, humanize.Bytes(uint64(len(res.Data))))
			if res.Photo.Part != "" {
				fmt.Fprintf(out, "part: %s\n", res.Photo.Part)
			}

			if output == "" {
				return nil
			}
			return os.WriteFile(output, res.Data, 0644)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "OFFICE EQUIPMENT", "category the photo is for")
	cmd.Flags().StringVarP(&part, "part", "p", "", "part label, for categories that use them")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the processed JPEG here")
	return cmd
}
