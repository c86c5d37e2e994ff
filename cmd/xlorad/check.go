package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xlorad/internal/config"
	"xlorad/internal/engine"
	"xlorad/internal/manager"
	"xlorad/internal/model"
	"xlorad/internal/registry"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Preflight every registered model without loading the native backend",
	Long: `Resolves weights, tokenizer declarations, and adapter orderings for every
registered model using a stub backend, and reports the environment sanity
checks the server runs at startup. Exits non-zero when any model fails.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(checkCmd)
}

// preflightRuntime stands in for the native backend so check stats weights
// and parses orderings without allocating model memory.
type preflightRuntime struct{}

func (preflightRuntime) Describe() string { return "preflight stub" }

type checkResult struct {
	ModelID  string `json:"model_id"`
	Kind     string `json:"kind"`
	OK       bool   `json:"ok"`
	Weights  string `json:"weights,omitempty"`
	SizeMB   int64  `json:"size_mb,omitempty"`
	Adapters int    `json:"adapters,omitempty"`
	Error    string `json:"error,omitempty"`
}

type checkReport struct {
	manager.SanityReport
	Results []checkResult `json:"results"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:     reg,
		ModelsDir:    cfg.ModelsDir,
		DefaultModel: cfg.DefaultModel,
		CacheTTL:     -1,
	})
	defer mgr.Close()
	report := checkReport{SanityReport: mgr.SanityCheck()}

	failed := 0
	for _, e := range reg.List() {
		report.Results = append(report.Results, checkEntry(cfg, e))
		if !report.Results[len(report.Results)-1].OK {
			failed++
		}
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printCheckReport(report)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed preflight", failed, len(report.Results))
	}
	return nil
}

func checkEntry(cfg config.Config, e registry.Entry) checkResult {
	res := checkResult{ModelID: e.ID, Kind: e.Source.Kind()}
	h, err := model.Load(e, model.Options{
		ModelsDir:  cfg.ModelsDir,
		ContextLen: cfg.ContextLen,
		Scaling:    cfg.XLoraScaling(),
		Runtime: func(string, model.Options) (engine.Runtime, error) {
			return preflightRuntime{}, nil
		},
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.Weights = h.WeightsPath()
	res.SizeMB = h.SizeBytes() >> 20
	if sel := h.Selector(); sel != nil {
		res.Adapters = len(sel.Adapters())
	}
	_ = h.Close()
	return res
}

func printCheckReport(r checkReport) {
	native := "missing (build with -tags=llama)"
	if r.NativeRuntime {
		native = "built"
	}
	fmt.Printf("native runtime: %s\n", native)
	if r.ModelsDir != "" {
		fmt.Printf("models dir:     %s (ok=%v)\n", r.ModelsDir, r.ModelsDirOK)
	}
	if r.DefaultModel != "" {
		fmt.Printf("default model:  %s (found=%v)\n", r.DefaultModel, r.DefaultFound)
	}
	fmt.Printf("models:         %d\n\n", r.Models)
	for _, res := range r.Results {
		if res.OK {
			extra := ""
			if res.Adapters > 0 {
				extra = fmt.Sprintf(", %d adapters", res.Adapters)
			}
			fmt.Printf("  ok   %-24s %s (%d MB%s)\n", res.ModelID, res.Weights, res.SizeMB, extra)
			continue
		}
		fmt.Printf("  FAIL %-24s %s\n", res.ModelID, res.Error)
	}
}
