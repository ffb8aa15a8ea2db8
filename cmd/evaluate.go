package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/extraction-eval/internal/baseline"
	"github.com/sells-group/extraction-eval/internal/eval"
	"github.com/sells-group/extraction-eval/internal/model"
)

var (
	evalActual   string
	evalExpected string
	evalSpec     string
	evalClass    string
	evalFormat   string
	evalSave     bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an extracted document against its baseline",
	Long:  "Loads an extracted document record, optionally merges an external baseline (JSON or XLSX ground truth), runs the comparison engine and prints a markdown or JSON report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		registry, err := model.LoadSpecFile(evalSpec)
		if err != nil {
			return eris.Wrap(err, "load class specs")
		}

		loader := baseline.NewLoader()
		doc, err := loader.LoadDocument(ctx, evalActual)
		if err != nil {
			return eris.Wrap(err, "load document record")
		}

		if evalClass != "" {
			for i := range doc.Sections {
				if doc.Sections[i].Class == "" {
					doc.Sections[i].Class = evalClass
				}
			}
		}

		if evalExpected != "" {
			expected, err := loader.LoadExpected(ctx, evalExpected)
			if err != nil {
				return eris.Wrap(err, "load baseline")
			}
			applied := baseline.ApplyBaseline(doc, expected)
			zap.L().Info("baseline applied",
				zap.String("document_id", doc.DocumentID),
				zap.Int("sections", applied),
			)
		}

		engine := buildEngine(registry)
		result := engine.EvaluateDocument(ctx, doc)

		if evalSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
			if err := st.SaveResult(ctx, result); err != nil {
				return eris.Wrap(err, "save result")
			}
			if _, err := st.InsertFlatRecords(ctx, model.Flatten(result, time.Now().UTC())); err != nil {
				return eris.Wrap(err, "save attribute rows")
			}
			zap.L().Info("evaluation persisted", zap.String("evaluation_id", result.ID))
		}

		switch evalFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		case "md", "markdown":
			fmt.Fprint(os.Stdout, eval.RenderMarkdown(result))
			return nil
		default:
			return eris.Errorf("unknown format: %s", evalFormat)
		}
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalActual, "actual", "", "document record (path, http(s) or ftp URL, required)")
	evaluateCmd.Flags().StringVar(&evalExpected, "expected", "", "baseline to merge: JSON record map or .xlsx ground-truth sheet")
	evaluateCmd.Flags().StringVar(&evalSpec, "spec-file", "", "class attribute spec file (required)")
	evaluateCmd.Flags().StringVar(&evalClass, "class", "", "default class for sections that declare none")
	evaluateCmd.Flags().StringVar(&evalFormat, "format", "md", "output format: md or json")
	evaluateCmd.Flags().BoolVar(&evalSave, "save", false, "persist the result to the configured store")
	_ = evaluateCmd.MarkFlagRequired("actual")
	_ = evaluateCmd.MarkFlagRequired("spec-file")
	rootCmd.AddCommand(evaluateCmd)
}
