package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <hn>",
	Short: "Export a patient's lab grid and medications to xlsx",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.GetPatientByHN(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "patient %s", args[0])
		}

		out := exportOut
		if out == "" {
			out = "labs-" + p.HN + ".xlsx"
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close()

		if err := export.WriteLabBook(f, p); err != nil {
			return err
		}
		zap.L().Info("exported", zap.String("hn", p.HN), zap.String("file", out))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default labs-<hn>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
