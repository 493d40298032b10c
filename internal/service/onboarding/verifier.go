package onboarding

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edrive/ride-hailing/internal/domain/driver"
)

// Verification is the verdict on one uploaded document
type Verification struct {
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason"`
	ManualReview bool   `json:"manual_review"`
}

// DocumentVerifier checks that an image shows the expected document
type DocumentVerifier interface {
	Verify(ctx context.Context, image string, docType driver.DocumentType) (*Verification, error)
}

// ManualReview is the verdict used when the verifier cannot be reached. It
// lets onboarding proceed but keeps the profile out of approval.
var ManualReview = Verification{Valid: true, Reason: "Manual Review Required", ManualReview: true}

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini document verifier
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiVerifier asks a Gemini model whether an image shows the requested
// document and reads back a {valid, reason} verdict.
type GeminiVerifier struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"valid":  {Type: genai.TypeBoolean},
		"reason": {Type: genai.TypeString},
	},
	Required: []string{"valid", "reason"},
}

func NewGeminiVerifier(ctx context.Context, cfg GeminiConfig) (*GeminiVerifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiVerifier{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

func (v *GeminiVerifier) Verify(ctx context.Context, image string, docType driver.DocumentType) (*Verification, error) {
	data, mimeType, err := decodeImage(image)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt(docType)),
		}, genai.RoleUser),
	}
	resp, err := v.client.Models.GenerateContent(ctx, v.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   verdictSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var out Verification
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	if !out.Valid {
		out.Reason = InvalidReason(docType)
	}
	return &out, nil
}

func prompt(t driver.DocumentType) string {
	label := Label(t)
	return fmt.Sprintf(`You verify driver documents for eDrive Hafizabad.
Check if this image is a %[1]s.
If it is not a clear, real picture of the requested item (a screenshot, a random object or a different document), return valid: false.
For "Vehicle Photo", a car or bike must be clearly visible with a number plate.
For "Driving License", it must look like a real license.
Return a JSON object: {"valid": boolean, "reason": "string"}.
If invalid, the reason must be: "%[2]s"`, label, InvalidReason(t))
}

// decodeImage accepts a data URL ("data:image/png;base64,...") or bare
// base64, which is taken as JPEG.
func decodeImage(image string) ([]byte, string, error) {
	mimeType := "image/jpeg"
	payload := image
	if strings.HasPrefix(image, "data:") {
		header, body, ok := strings.Cut(image, ",")
		if !ok {
			return nil, "", errors.New("malformed data url")
		}
		if mt, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";"); mt != "" {
			mimeType = mt
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, mimeType, nil
}

// Label is the human name of a document type
func Label(t driver.DocumentType) string {
	switch t {
	case driver.DocumentCNICFront:
		return "CNIC Front"
	case driver.DocumentCNICBack:
		return "CNIC Back"
	case driver.DocumentLicense:
		return "Driving License"
	case driver.DocumentVehicle:
		return "Vehicle Photo"
	}
	return string(t)
}

// InvalidReason is the message shown when a document is rejected
func InvalidReason(t driver.DocumentType) string {
	return fmt.Sprintf("This is not a valid %s picture, please upload a correct picture.", Label(t))
}
