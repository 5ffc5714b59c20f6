// Package judge talks to a Judge0-compatible code-execution service. The
// service compiles and runs submitted code against each test case; this
// client only models the HTTP contract.
package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/strathlearn/api/internal/appctx"
	"github.com/strathlearn/api/internal/challenge"
	"github.com/strathlearn/api/internal/config"
)

// Runner executes submitted code against a challenge's test cases.
type Runner interface {
	RunTests(ctx context.Context, code string, ch challenge.Challenge) []challenge.TestResult
}

// Judge0 status ids
const (
	statusAccepted          = 3
	statusWrongAnswer       = 4
	statusTimeLimitExceeded = 5
	statusCompilationError  = 6
	statusRuntimeErrorOther = 11
)

type Client struct {
	baseURL    string
	languageID int
	httpClient *http.Client
}

func NewClient(cfg config.JudgeConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		languageID: cfg.LanguageID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type submissionRequest struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin,omitempty"`
	ExpectedOutput string  `json:"expected_output,omitempty"`
	CPUTimeLimit   float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    int     `json:"memory_limit,omitempty"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResponse struct {
	Stdout        string           `json:"stdout"`
	Time          string           `json:"time"`
	Memory        int              `json:"memory"`
	Stderr        string           `json:"stderr"`
	Token         string           `json:"token"`
	CompileOutput string           `json:"compile_output"`
	Message       string           `json:"message"`
	Status        submissionStatus `json:"status"`
}

// RunTests submits the code once per test case and collects per-case results.
// Transport and execution failures land in the result's Error field rather
// than aborting the run.
func (c *Client) RunTests(ctx context.Context, code string, ch challenge.Challenge) []challenge.TestResult {
	logger := appctx.Logger(ctx)
	results := make([]challenge.TestResult, 0, len(ch.TestCases))

	for _, tc := range ch.TestCases {
		result := challenge.TestResult{TestCaseID: tc.ID}

		token, err := c.submit(ctx, code, tc.Input, ch.TimeLimit, ch.MemoryLimit)
		if err != nil {
			logger.Error("judge submission failed", "challenge_id", ch.ID, "test_case_id", tc.ID, "error", err)
			result.Error = fmt.Sprintf("Submission error: %v", err)
			results = append(results, result)
			continue
		}

		resp, err := c.waitForResult(ctx, token)
		if err != nil {
			logger.Error("judge result polling failed", "challenge_id", ch.ID, "test_case_id", tc.ID, "error", err)
			result.Error = fmt.Sprintf("Execution error: %v", err)
			results = append(results, result)
			continue
		}

		results = append(results, gradeResult(resp, tc))
	}

	return results
}

func (c *Client) submit(ctx context.Context, code, stdin string, timeLimit, memoryLimit int) (string, error) {
	reqBody := submissionRequest{
		SourceCode: code,
		LanguageID: c.languageID,
		Stdin:      stdin,
	}
	if timeLimit > 0 {
		reqBody.CPUTimeLimit = float64(timeLimit)
	}
	if memoryLimit > 0 {
		reqBody.MemoryLimit = memoryLimit * 1024 // Judge0 wants KB
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach judge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("judge returned status %d", resp.StatusCode)
	}

	var out submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode judge response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("judge returned no submission token")
	}

	return out.Token, nil
}

func (c *Client) waitForResult(ctx context.Context, token string) (*submissionResponse, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		result, err := c.fetchResult(ctx, token)
		if err != nil {
			return nil, err
		}
		// 1 = In Queue, 2 = Processing
		if result.Status.ID > 2 {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchResult(ctx context.Context, token string) (*submissionResponse, error) {
	url := fmt.Sprintf("%s/submissions/%s?base64_encoded=true", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach judge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge returned status %d", resp.StatusCode)
	}

	var out submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode judge result: %w", err)
	}

	out.Stdout = decodeBase64(out.Stdout)
	out.Stderr = decodeBase64(out.Stderr)
	out.CompileOutput = decodeBase64(out.CompileOutput)
	out.Message = decodeBase64(out.Message)

	return &out, nil
}

func gradeResult(resp *submissionResponse, tc challenge.TestCase) challenge.TestResult {
	result := challenge.TestResult{TestCaseID: tc.ID}

	switch resp.Status.ID {
	case statusAccepted, statusWrongAnswer:
		result.Output = cleanOutput(resp.Stdout)
		result.Memory = resp.Memory
		if resp.Time != "" {
			if t, err := strconv.ParseFloat(resp.Time, 64); err == nil {
				result.ExecutionTime = t
			}
		}

		expected := cleanOutput(tc.ExpectedOutput)
		result.Passed = result.Output == expected
		if !result.Passed {
			result.Error = fmt.Sprintf("Expected '%s' but got '%s'",
				formatForDisplay(expected), formatForDisplay(result.Output))
		}
	case statusTimeLimitExceeded:
		result.Error = "Time limit exceeded"
	case statusCompilationError:
		result.Error = "Compilation error: " + resp.CompileOutput
	case statusRuntimeErrorOther:
		result.Output = resp.Stdout
		result.Error = "Runtime error: " + resp.Message
	default:
		result.Error = fmt.Sprintf("Error: %s", resp.Status.Description)
		if resp.CompileOutput != "" {
			result.Error += " - " + resp.CompileOutput
		}
		if resp.Stderr != "" {
			result.Error += " - " + resp.Stderr
		}
		if resp.Message != "" {
			result.Error += " - " + resp.Message
		}
	}

	return result
}

func decodeBase64(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(decoded)
}
