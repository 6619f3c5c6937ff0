package llm

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func TestGenAIClient_Generate(t *testing.T) {
	var gotModel string
	var gotTemp float32
	var gotPrompt string
	fn := func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel = model
		gotTemp = *cfg.Temperature
		gotPrompt = contents[0].Parts[0].Text
		return textResponse("42"), nil
	}
	c := newGenAIClient(fn, "")
	out, err := c.Generate(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatal(err)
	}
	if out != "42" {
		t.Errorf("Generate() = %q", out)
	}
	if gotModel != DefaultModel {
		t.Errorf("model = %s, want %s", gotModel, DefaultModel)
	}
	if gotTemp != DefaultTemperature {
		t.Errorf("temperature = %v", gotTemp)
	}
	if gotPrompt != "what is the answer?" {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestGenAIClient_Generate_errors(t *testing.T) {
	apiErr := errors.New("503 unavailable")
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		err     error
		wantErr error
	}{
		{"transport failure", nil, apiErr, apiErr},
		{"nil response", nil, nil, ErrEmptyResponse},
		{"blank text", textResponse("  \n"), nil, ErrEmptyResponse},
		{"no candidates", &genai.GenerateContentResponse{}, nil, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			}
			_, err := newGenAIClient(fn, "m", WithTemperature(0)).Generate(context.Background(), "p")
			var mie *ModelInvocationError
			if !errors.As(err, &mie) {
				t.Fatalf("expected ModelInvocationError, got %v", err)
			}
			if mie.Model != "m" {
				t.Errorf("Model = %s", mie.Model)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v does not wrap %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGenAIClient_requiresKey(t *testing.T) {
	if _, err := NewGenAIClient(context.Background(), "", ""); err == nil {
		t.Error("expected error without API key")
	}
}

func TestClientFunc(t *testing.T) {
	var c Client = ClientFunc(func(_ context.Context, p string) (string, error) { return "echo: " + p, nil })
	out, err := c.Generate(context.Background(), "hi")
	if err != nil || out != "echo: hi" {
		t.Errorf("got %q, %v", out, err)
	}
}
