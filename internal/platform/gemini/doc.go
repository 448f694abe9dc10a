// Package gemini implements the generation interfaces using Google's Gemini
// API through the google.golang.org/genai client. Because credentials are
// supplied per call, the package keeps one lazily-created genai client per
// API key.
package gemini
