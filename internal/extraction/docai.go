package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/envutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type docAIExtractor struct {
	log    *logger.Logger
	client *documentai.DocumentProcessorClient

	projectID        string
	location         string
	processorID      string
	processorVersion string
	pricePerPageUSD  float64
}

// NewDocAIExtractor builds the primary extractor over a Document AI invoice/
// contract processor. Configuration is env-backed like the rest of the
// platform clients.
func NewDocAIExtractor(log *logger.Logger) (Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "DocAIExtractor")

	location := envutil.GetEnv("DOCUMENTAI_LOCATION", "us", log)
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	var opts []option.ClientOption
	opts = append(opts, option.WithEndpoint(endpoint))
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	client, err := documentai.NewDocumentProcessorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	slog.Info("Document AI extractor initialized", "endpoint", endpoint)

	return &docAIExtractor{
		log:              slog,
		client:           client,
		projectID:        envutil.GetEnv("DOCUMENTAI_PROJECT_ID", "", log),
		location:         location,
		processorID:      envutil.GetEnv("DOCUMENTAI_PROCESSOR_ID", "", log),
		processorVersion: envutil.GetEnv("DOCUMENTAI_PROCESSOR_VERSION", "", log),
		pricePerPageUSD:  envutil.GetEnvAsFloat("DOCUMENTAI_PRICE_PER_PAGE_USD", 0.01, log),
	}, nil
}

func (e *docAIExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	if len(req.Data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	mime := req.MimeType
	if mime == "" {
		mime = "application/pdf"
	}

	name := e.processorName()
	started := time.Now()

	resp, err := e.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  req.Data,
				MimeType: mime,
			},
		},
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text", "entities", "pages.page_number"}},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	elapsed := time.Since(started)

	result := &Result{
		Fields:     map[string]FieldValue{},
		ModelID:    name,
		DurationMs: elapsed.Milliseconds(),
	}
	doc := resp.GetDocument()
	if doc == nil {
		result.Warnings = append(result.Warnings, "empty documentai response")
		return result, nil
	}

	result.CostUSD = float64(len(doc.GetPages())) * e.pricePerPageUSD
	if text := strings.TrimSpace(doc.GetText()); text != "" {
		result.Fields[FieldText] = FieldValue{Value: text, Confidence: 1}
	}

	var confSum float64
	var confN int
	for _, ent := range doc.GetEntities() {
		key := normalizeEntityType(ent.GetType())
		if key == "" {
			continue
		}
		value := strings.TrimSpace(ent.GetNormalizedValue().GetText())
		if value == "" {
			value = strings.TrimSpace(ent.GetMentionText())
		}
		if value == "" {
			continue
		}
		fv := FieldValue{Value: value, Confidence: float64(ent.GetConfidence())}
		if bb := entityBounding(ent); bb != nil {
			fv.Bounding = bb
		}
		// First occurrence wins; invoice processors emit line-item
		// duplicates for some types.
		if _, seen := result.Fields[key]; !seen {
			result.Fields[key] = fv
			confSum += fv.Confidence
			confN++
		}
	}
	if confN > 0 {
		result.Confidence = confSum / float64(confN)
	}
	return result, nil
}

func (e *docAIExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *docAIExtractor) processorName() string {
	if e.processorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			e.projectID, e.location, e.processorID, e.processorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.projectID, e.location, e.processorID)
}

// normalizeEntityType maps processor entity types onto the pipeline's field
// keys. Unknown types pass through lowercased so nothing is lost.
func normalizeEntityType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "invoice_id", "subject", "document_title":
		return FieldTitle
	case "due_date", "expiration_date":
		return FieldDueDate
	case "total_amount", "net_amount", "amount_due":
		return FieldAmount
	case "supplier_name", "vendor", "remit_to_name":
		return FieldVendorName
	case "supplier_tax_id", "vat_id", "tax_id":
		return FieldVendorTaxID
	case "supplier_address", "remit_to_address":
		return FieldVendorAddress
	case "supplier_email":
		return FieldVendorEmail
	case "supplier_phone":
		return FieldVendorPhone
	default:
		return t
	}
}

func entityBounding(ent *documentaipb.Document_Entity) *BoundingBox {
	anchor := ent.GetPageAnchor()
	if anchor == nil || len(anchor.GetPageRefs()) == 0 {
		return nil
	}
	ref := anchor.GetPageRefs()[0]
	bb := &BoundingBox{Page: int(ref.GetPage())}
	if poly := ref.GetBoundingPoly(); poly != nil {
		for _, v := range poly.GetNormalizedVertices() {
			bb.Vertices = append(bb.Vertices, [2]float64{float64(v.GetX()), float64(v.GetY())})
		}
	}
	return bb
}
