package llm

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var generativeLanguageScopes = []string{
	"https://www.googleapis.com/auth/generative-language",
	"https://www.googleapis.com/auth/cloud-platform",
}

// ServiceAccountTokenSource loads a Google service account key file and returns
// a token source suitable for NewGeminiClient.
func ServiceAccountTokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gemini: read service account: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, generativeLanguageScopes...)
	if err != nil {
		return nil, fmt.Errorf("gemini: parse service account: %w", err)
	}
	return creds.TokenSource, nil
}
