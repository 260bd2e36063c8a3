package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/envutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

// visionExtractor is the OCR fallback for photographed receipts. It yields
// raw text plus a best-effort title; structured fields come only from the
// document processor.
type visionExtractor struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient

	priceUSD float64
}

func NewVisionExtractor(log *logger.Logger) (Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "VisionExtractor")

	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := vision.NewImageAnnotatorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionExtractor{
		log:      slog,
		client:   client,
		priceUSD: envutil.GetEnvAsFloat("VISION_PRICE_PER_IMAGE_USD", 0.0015, log),
	}, nil
}

func (e *visionExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if len(req.Data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	started := time.Now()

	resp, err := e.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: req.Data},
			Features: []*visionpb.Feature{{
				Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
			}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	elapsed := time.Since(started)

	result := &Result{
		Fields:     map[string]FieldValue{},
		ModelID:    "gcp-vision/document-text-detection",
		CostUSD:    e.priceUSD,
		DurationMs: elapsed.Milliseconds(),
	}
	if len(resp.GetResponses()) == 0 {
		result.Warnings = append(result.Warnings, "empty vision response")
		return result, nil
	}
	annotation := resp.GetResponses()[0].GetFullTextAnnotation()
	if annotation == nil || strings.TrimSpace(annotation.GetText()) == "" {
		result.Warnings = append(result.Warnings, "no text detected")
		return result, nil
	}

	text := strings.TrimSpace(annotation.GetText())
	result.Fields[FieldText] = FieldValue{Value: text, Confidence: pageConfidence(annotation)}
	if title := firstLine(text); title != "" {
		result.Fields[FieldTitle] = FieldValue{Value: title, Confidence: pageConfidence(annotation)}
	}
	result.Confidence = pageConfidence(annotation)
	return result, nil
}

func (e *visionExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func pageConfidence(annotation *visionpb.TextAnnotation) float64 {
	pages := annotation.GetPages()
	if len(pages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pages {
		sum += float64(p.GetConfidence())
	}
	return sum / float64(len(pages))
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
