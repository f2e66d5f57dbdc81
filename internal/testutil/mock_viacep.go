// Package testutil provides testing utilities for the CEP pipeline.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock ViaCEP endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockViaCEP is a configurable mock ViaCEP server for testing. It serves
// the /ws/{cep}/json/ path shape and tracks every request it receives.
type MockViaCEP struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount int
	requestLog   []string
}

// NewMockViaCEP creates a new mock ViaCEP server.
func NewMockViaCEP() *MockViaCEP {
	mock := &MockViaCEP{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requestLog = append(mock.requestLog, r.URL.Path)
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockViaCEP) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockViaCEP) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockViaCEP) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestLog = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockViaCEP) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetCEPResponse configures a canned response for one CEP.
func (m *MockViaCEP) SetCEPResponse(cep string, resp MockResponse) {
	m.SetHandler(cepPath(cep), func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetFailThenSucceed makes a CEP return a transient status n times before
// serving the given success body.
func (m *MockViaCEP) SetFailThenSucceed(cep string, failStatus, n int, successBody string) {
	var mu sync.Mutex
	attempts := 0
	m.SetHandler(cepPath(cep), func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()

		if current <= n {
			w.WriteHeader(failStatus)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(successBody))
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockViaCEP) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns the number of requests made for one CEP.
func (m *MockViaCEP) RequestsFor(cep string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, path := range m.requestLog {
		if path == cepPath(cep) {
			count++
		}
	}
	return count
}

func cepPath(cep string) string {
	return fmt.Sprintf("/ws/%s/json/", cep)
}

// defaultHandler answers unknown CEPs the way ViaCEP does: a 200 with an
// error marker in the body.
func (m *MockViaCEP) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"erro": true}`))
}

// NewSuccessResponse creates a 200 response with a minimal address body.
func NewSuccessResponse(cep, street, neighborhood, city, uf string) MockResponse {
	body := fmt.Sprintf(
		`{"cep":%q,"logradouro":%q,"complemento":"","unidade":"","bairro":%q,"localidade":%q,"uf":%q,"estado":"São Paulo","regiao":"Sudeste","ibge":"3550308","gia":"1004","ddd":"11","siafi":"7107"}`,
		cep, street, neighborhood, city, uf,
	)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates the body-level error marker ViaCEP returns
// for unknown CEPs.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"erro": true}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
	}
}
