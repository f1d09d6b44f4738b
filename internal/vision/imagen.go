package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/prompts"
)

type predictor interface {
	Predict(ctx context.Context, req *aiplatformpb.PredictRequest, opts ...gax.CallOption) (*aiplatformpb.PredictResponse, error)
	Close() error
}

func dialPredictor(ctx context.Context, opts ...option.ClientOption) (predictor, error) {
	return aiplatform.NewPredictionClient(ctx, opts...)
}

// VertexImagen implements Designer via the Vertex AI Imagen edit endpoint.
// A prediction client is dialed per call so credentials can rotate.
type VertexImagen struct {
	projectID          string
	location           string
	model              string
	apiKey             string
	serviceAccountJSON string
	timeout            time.Duration
	dial               func(ctx context.Context, opts ...option.ClientOption) (predictor, error)
}

// VertexImagenConfig describes how to connect to Imagen.
type VertexImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccountJSON string
	Timeout            time.Duration
}

// NewVertexImagen wires a VertexImagen designer.
func NewVertexImagen(cfg VertexImagenConfig) *VertexImagen {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &VertexImagen{
		projectID:          strings.TrimSpace(cfg.ProjectID),
		location:           strings.TrimSpace(cfg.Location),
		model:              strings.TrimSpace(cfg.Model),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		serviceAccountJSON: strings.TrimSpace(cfg.ServiceAccountJSON),
		timeout:            timeout,
		dial:               dialPredictor,
	}
}

// GenerateInitialDesign restyles the original photo with an Imagen edit.
func (v *VertexImagen) GenerateInitialDesign(ctx context.Context, original imagecodec.DataURI, styleName string) (imagecodec.DataURI, error) {
	if strings.TrimSpace(styleName) == "" {
		return "", fmt.Errorf("imagen: style is required")
	}
	return v.edit(ctx, original, prompts.InitialDesign(styleName))
}

// RefineDesign applies the instruction to the current design.
func (v *VertexImagen) RefineDesign(ctx context.Context, current imagecodec.DataURI, instruction string) (imagecodec.DataURI, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", fmt.Errorf("imagen: instruction is required")
	}
	return v.edit(ctx, current, prompts.Refine(instruction))
}

func (v *VertexImagen) edit(ctx context.Context, base imagecodec.DataURI, prompt string) (imagecodec.DataURI, error) {
	if v == nil {
		return "", fmt.Errorf("imagen: client not configured")
	}
	if v.projectID == "" || v.location == "" || v.model == "" {
		return "", fmt.Errorf("imagen: missing project/location/model")
	}

	instance, params, err := imagenRequest(base, prompt)
	if err != nil {
		return "", err
	}

	childCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	client, err := v.dial(childCtx, v.clientOptions()...)
	if err != nil {
		return "", fmt.Errorf("imagen: prediction client: %w", err)
	}
	defer client.Close()

	resp, err := client.Predict(childCtx, &aiplatformpb.PredictRequest{
		Endpoint:   v.endpoint(),
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return "", fmt.Errorf("imagen: predict: %w", err)
	}
	return decodePrediction(resp.GetPredictions())
}

func (v *VertexImagen) endpoint() string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.projectID, v.location, v.model)
}

func (v *VertexImagen) clientOptions() []option.ClientOption {
	options := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.location))}
	if v.serviceAccountJSON != "" {
		options = append(options, option.WithCredentialsJSON([]byte(v.serviceAccountJSON)))
	} else if v.apiKey != "" {
		options = append(options, option.WithAPIKey(v.apiKey))
	}
	return options
}

func imagenRequest(base imagecodec.DataURI, prompt string) (*structpb.Value, *structpb.Value, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, nil, fmt.Errorf("imagen: prompt is required")
	}
	payload := base.Payload()
	if _, _, err := imagecodec.Decode(base); err != nil {
		return nil, nil, fmt.Errorf("imagen: reference image: %w", err)
	}

	instance, err := structpb.NewValue(map[string]any{
		"prompt": prompt,
		"image": map[string]any{
			"bytesBase64Encoded": payload,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("imagen: build instance: %w", err)
	}

	params, err := structpb.NewValue(map[string]any{
		"sampleCount": 1,
		"editMode":    "inpainting-free-form",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("imagen: build parameters: %w", err)
	}
	return instance, params, nil
}

func decodePrediction(predictions []*structpb.Value) (imagecodec.DataURI, error) {
	if len(predictions) == 0 {
		return "", fmt.Errorf("imagen: empty prediction response")
	}
	fields := predictions[0].GetStructValue().GetFields()
	field := fields["bytesBase64Encoded"]
	if field == nil || field.GetStringValue() == "" {
		return "", ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(field.GetStringValue())
	if err != nil {
		return "", fmt.Errorf("imagen: decode result: %w", err)
	}
	mime := "image/png"
	if m := fields["mimeType"]; m != nil && m.GetStringValue() != "" {
		mime = m.GetStringValue()
	}
	return imagecodec.FromBytes(data, mime), nil
}
