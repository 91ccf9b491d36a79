package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
)

// NoDocumentsText marks a category without any report files.
const NoDocumentsText = "no documents in category"

// ErrorAnalysis is a narrative reading of a consolidated report.
type ErrorAnalysis struct {
	Summary            string   `json:"summary" jsonschema:"required,description=Two or three sentences on overall parser quality"`
	FrequentConfusions []string `json:"frequent_confusions" jsonschema:"required,description=The most frequent gold/system label confusions with a short comment each"`
	WeakSentences      []string `json:"weak_sentences" jsonschema:"required,description=File and sentence ids with low F1 worth inspecting"`
	Suggestions        []string `json:"suggestions" jsonschema:"required,description=Concrete label map or parser issues to check"`
}

// ErrorAnalyst produces an ErrorAnalysis for a report.
type ErrorAnalyst interface {
	Analyze(ctx context.Context, r *ConsolidatedReport) (ErrorAnalysis, error)
}

// ConsolidatedPaths returns the text, JSON and analysis paths for a report written to dir.
func ConsolidatedPaths(dir, outputName string) (text, jsonPath, analysis string) {
	if outputName == "" {
		outputName = DefaultReportName
	}
	twins := consolidatedTwins(outputName)
	return filepath.Join(dir, outputName), filepath.Join(dir, twins[0]), filepath.Join(dir, twins[1])
}

func consolidatedTwins(outputName string) []string {
	base := strings.TrimSuffix(outputName, filepath.Ext(outputName))
	return []string{base + ".json", base + ".analysis.json"}
}

// WriteConsolidatedReport writes the text report and its JSON twin into dir, atomically.
func WriteConsolidatedReport(dir, outputName string, r *ConsolidatedReport) (textPath, jsonPath string, err error) {
	textPath, jsonPath, _ = ConsolidatedPaths(dir, outputName)
	if err := fileutils.WriteFileAtomicSameDir(textPath, []byte(RenderReport(r)), 0o644); err != nil {
		return "", "", fmt.Errorf("WriteConsolidatedReport: %w", err)
	}
	if err := fileutils.WriteJSONFileAtomic(jsonPath, r, true); err != nil {
		return "", "", fmt.Errorf("WriteConsolidatedReport: %w", err)
	}
	return textPath, jsonPath, nil
}

// WriteErrorAnalysis stores an analysis next to the consolidated report.
func WriteErrorAnalysis(dir, outputName string, a ErrorAnalysis) (string, error) {
	_, _, path := ConsolidatedPaths(dir, outputName)
	if err := fileutils.WriteJSONFileAtomic(path, a, true); err != nil {
		return "", fmt.Errorf("WriteErrorAnalysis: %w", err)
	}
	return path, nil
}

// RenderReport formats a consolidated report as text.
func RenderReport(r *ConsolidatedReport) string {
	var b strings.Builder

	for _, suffix := range r.Suffixes {
		b.WriteString("\n\n")
		if !r.NoCategories {
			for _, g := range r.Groups {
				if g.Suffix != suffix {
					continue
				}
				fmt.Fprintf(&b, "=== %s%s ===\n", g.Genre, g.Suffix)
				if g.NoDocuments {
					b.WriteString(NoDocumentsText + "\n\n")
					continue
				}
				fmt.Fprintf(&b, "Sentences: %.0f\n", g.Sentences)
				fmt.Fprintf(&b, "Error sentences: %.0f\n", g.ErrorSentences)
				fmt.Fprintf(&b, "Recall: %.2f\n", g.Recall)
				fmt.Fprintf(&b, "Precision: %.2f\n", g.Precision)
				fmt.Fprintf(&b, "F-measure: %.2f\n", g.FMeasure)
				fmt.Fprintf(&b, "Complete match: %.2f\n", g.CompleteMatch)
				fmt.Fprintf(&b, "Average crossing: %.2f\n", g.AverageCrossing)
				fmt.Fprintf(&b, "Tagging accuracy: %.2f\n\n", g.TaggingAccuracy)
			}
		}

		for _, t := range r.Totals {
			if t.Suffix != suffix {
				continue
			}
			fmt.Fprintf(&b, "=== Heildin%s ===\n", t.Suffix)
			if t.NoDocuments {
				b.WriteString("no documents\n")
			}
			fmt.Fprintf(&b, "Sentences: %.0f\n", t.Sentences)
			fmt.Fprintf(&b, "Error sentences: %.0f\n", t.ErrorSentences)
			writeMetric(&b, "Recall", t.Recall)
			writeMetric(&b, "Precision", t.Precision)
			writeMetric(&b, "F-measure", t.FMeasure)
			writeMetric(&b, "Complete match", t.CompleteMatch)
			writeMetric(&b, "Average crossing", t.AverageCrossing)
			writeMetric(&b, "Tagging accuracy", t.TaggingAccuracy)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n\nWarnings\n")
		for _, w := range r.Warnings {
			b.WriteString("\t" + w + "\n")
		}
	}

	b.WriteString("\n\nResults for each sentence\n")
	for _, f := range r.Files {
		b.WriteString(f.Name + "\n")
		b.WriteString("\tid\tRecall\tPrec.\tTag Acc.\tLength\tF1\n")
		for _, s := range f.Sentences {
			warning := ""
			if s.Warning {
				warning = "WARNING"
			}
			fmt.Fprintf(&b, "\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
				s.ID, s.Recall, s.Precision, s.TagAccuracy, s.Length, s.F1, warning)
			for i := 0; i < max(len(s.OnlyGold), len(s.OnlySystem)); i++ {
				fmt.Fprintf(&b, "\t\t%-15s%-15s\n", at(s.OnlyGold, i), at(s.OnlySystem, i))
			}
		}
	}

	b.WriteString("\n\nConfusion\n")
	for _, c := range r.Confusion {
		fmt.Fprintf(&b, "%s\t%s\t%d\n", c.Gold, c.System, c.Count)
	}
	return b.String()
}

func writeMetric(b *strings.Builder, label string, v *float64) {
	if v == nil {
		fmt.Fprintf(b, "%s: N/A\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %.2f\n", label, *v)
}

func at(items []string, i int) string {
	if i < len(items) {
		return items[i]
	}
	return ""
}

// ReportSchema returns the JSON schema of the consolidated JSON report.
func ReportSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(&ConsolidatedReport{})
	schema.Title = "ParsingTestPipe consolidated report"
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ReportSchema: %w", err)
	}
	return b, nil
}
