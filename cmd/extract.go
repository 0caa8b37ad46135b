package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/pkg/anthropic"
)

var extractCmd = &cobra.Command{
	Use:   "extract <kind> <file>...",
	Short: "Extract structured records from ward documents",
	Long: `Runs one extraction use-case over each file and prints the structured
records as JSON. Image files (.jpg, .jpeg, .png, .webp) are sent to the vision
model; anything else is read as text. Nothing is written to any patient.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := extract.Kind(args[0])
		if !kind.Valid() {
			return eris.Errorf("unknown extraction kind %q", args[0])
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ex := initExtractor()
		files := args[1:]
		results := make([]fileResult, len(files))

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(cfg.Extract.MaxConcurrent)

		for i, path := range files {
			g.Go(func() error {
				doc, err := loadDocument(path)
				if err != nil {
					return err
				}
				results[i] = fileResult{
					File:    path,
					Records: runExtraction(ctx, ex, kind, doc),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "encode results")
	},
}

type fileResult struct {
	File    string `json:"file"`
	Records any    `json:"records"`
}

var imageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// loadDocument reads a file as either an image or plain text.
func loadDocument(path string) (extract.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Document{}, eris.Wrapf(err, "read %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mediaType, ok := imageMediaTypes[ext]; ok {
		return extract.Document{
			Images: []anthropic.Image{{
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(data),
			}},
		}, nil
	}
	return extract.Document{Text: string(data)}, nil
}

func runExtraction(ctx context.Context, ex *extract.Extractor, kind extract.Kind, doc extract.Document) any {
	switch kind {
	case extract.KindLab:
		return ex.LabSheet(ctx, doc)
	case extract.KindMedication:
		return ex.MedicationList(ctx, doc)
	case extract.KindProblem:
		return ex.ProblemList(ctx, doc)
	case extract.KindCulture:
		return ex.CultureReport(ctx, doc)
	case extract.KindImaging:
		return ex.ImagingReport(ctx, doc)
	case extract.KindEcho:
		return ex.EchoReport(ctx, doc)
	case extract.KindMicroscopy:
		return ex.MicroscopyReport(ctx, doc)
	case extract.KindAppointment:
		return ex.AppointmentScreen(ctx, doc)
	case extract.KindHandoff:
		return ex.Handoff(ctx, doc.Text)
	case extract.KindEKG:
		return ex.EKG(ctx, doc)
	case extract.KindAdmission:
		return ex.AdmissionNote(ctx, doc)
	case extract.KindDischarge:
		return ex.DischargeSummary(ctx, doc)
	default:
		zap.L().Warn("no use-case for kind", zap.String("kind", string(kind)))
		return nil
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
