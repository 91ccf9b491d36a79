package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/mideind/ParsingTestPipe/evaluation"
	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
)

const analysisPrompt = `You review constituency parser evaluation results for Icelandic.
You get EVALB averages per test, the most frequent gold/system label pairs, and the weakest sentences.
Point out which label confusions dominate, which sentences deserve a manual look, and what in the
label generalization or the parser could explain them. Be concise and concrete. Return JSON only.`

// DefaultAnalysisModel is used when OpenAIAnalyst.Model is empty.
const DefaultAnalysisModel = "gpt-5-mini"

var analysisSchema = GenerateSchema[evaluation.ErrorAnalysis]()

// OpenAIAnalyst implements evaluation.ErrorAnalyst with the Responses API.
type OpenAIAnalyst struct {
	client *openai.Client
	Model  string

	// TopConfusions and TopSentences bound the prompt size.
	TopConfusions int
	TopSentences  int
}

// NewOpenAIAnalyst returns an analyst using apiKey.
func NewOpenAIAnalyst(apiKey, model string) (*OpenAIAnalyst, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("NewOpenAIAnalyst: missing API key (set OPENAI_API_KEY)")
	}
	if model == "" {
		model = DefaultAnalysisModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAnalyst{client: &client, Model: model, TopConfusions: 40, TopSentences: 25}, nil
}

func (a *OpenAIAnalyst) Analyze(ctx context.Context, r *evaluation.ConsolidatedReport) (evaluation.ErrorAnalysis, error) {
	if a.client == nil {
		return evaluation.ErrorAnalysis{}, errors.New("OpenAIAnalyst: client is nil")
	}
	if r == nil {
		return evaluation.ErrorAnalysis{}, errors.New("OpenAIAnalyst: report is nil")
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "ErrorAnalysis",
			Schema:      analysisSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Parser error analysis JSON"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:           a.Model,
		MaxOutputTokens: openai.Int(2500),
		Instructions:    openai.String(analysisPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(BuildAnalysisInput(r, a.TopConfusions, a.TopSentences), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := CallWithRetry(ctx, a.client, params)
	if err != nil {
		return evaluation.ErrorAnalysis{}, err
	}

	var out evaluation.ErrorAnalysis
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return evaluation.ErrorAnalysis{}, fmt.Errorf("unmarshal analysis: %w (model_output_prefix=%q)", err, fileutils.Truncate(resp.OutputText(), 500))
	}
	out.Summary = strings.TrimSpace(out.Summary)
	return out, nil
}

// BuildAnalysisInput condenses a report into the prompt body: totals, the topConfusions most frequent
// mismatched label pairs and the topSentences lowest-F1 sentences.
func BuildAnalysisInput(r *evaluation.ConsolidatedReport, topConfusions, topSentences int) string {
	var b strings.Builder

	b.WriteString("TOTALS\n")
	for _, t := range r.Totals {
		fmt.Fprintf(&b, "%s files=%d sentences=%.0f recall=%s precision=%s f=%s tags=%s\n",
			t.Suffix, t.Files, t.Sentences, na(t.Recall), na(t.Precision), na(t.FMeasure), na(t.TaggingAccuracy))
	}

	var mismatched []evaluation.ConfusionEntry
	for _, c := range r.Confusion {
		if c.Gold != c.System {
			mismatched = append(mismatched, c)
		}
	}
	sort.SliceStable(mismatched, func(i, j int) bool { return mismatched[i].Count > mismatched[j].Count })
	b.WriteString("\nCONFUSIONS (gold system count)\n")
	for i, c := range mismatched {
		if topConfusions > 0 && i >= topConfusions {
			break
		}
		fmt.Fprintf(&b, "%s %s %d\n", c.Gold, c.System, c.Count)
	}

	type weak struct {
		file string
		s    evaluation.SentenceResult
	}
	var sents []weak
	for _, f := range r.Files {
		for _, s := range f.Sentences {
			if s.Warning {
				sents = append(sents, weak{file: f.Name, s: s})
			}
		}
	}
	sort.SliceStable(sents, func(i, j int) bool { return sents[i].s.F1 < sents[j].s.F1 })
	b.WriteString("\nWEAK SENTENCES (file id f1 only_gold | only_system)\n")
	for i, w := range sents {
		if topSentences > 0 && i >= topSentences {
			break
		}
		fmt.Fprintf(&b, "%s %s %.2f %s | %s\n", w.file, w.s.ID, w.s.F1,
			strings.Join(w.s.OnlyGold, ", "), strings.Join(w.s.OnlySystem, ", "))
	}
	return b.String()
}

func na(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
