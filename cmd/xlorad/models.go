package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"xlorad/pkg/types"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models from the config and models directory without serving",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		models := make([]types.Model, 0, reg.Len())
		for _, e := range reg.List() {
			models = append(models, e.APIModel())
		}
		if modelsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(models)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tQUANT\tFAMILY\tCTX\tADAPTERS")
		for _, m := range models {
			ctx := "-"
			if m.ContextLength > 0 {
				ctx = strconv.Itoa(m.ContextLength)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				m.ID, m.Kind, orDash(m.Quant), orDash(m.Family), ctx, orDash(m.AdapterID))
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "emit the listing as JSON")
	rootCmd.AddCommand(modelsCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
