package challenge

// Challenge is a static code-challenge definition. Content is immutable at
// runtime; the store owns loading and lookup.
type Challenge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Difficulty  string     `json:"difficulty"`
	Description string     `json:"description"`
	Hints       []string   `json:"hints"`
	TestCases   []TestCase `json:"testCases"`
	InitialCode string     `json:"initialCode"`
	Solutions   []string   `json:"solutions,omitempty"`
	TimeLimit   int        `json:"timeLimit"`
	MemoryLimit int        `json:"memoryLimit"`
}

type TestCase struct {
	ID             string `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	Hidden         bool   `json:"hidden"`
}

// Summary is the list-view projection of a challenge.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type SubmissionRequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

type TestResult struct {
	TestCaseID    string  `json:"testCaseId"`
	Passed        bool    `json:"passed"`
	Output        string  `json:"output,omitempty"`
	Error         string  `json:"error,omitempty"`
	ExecutionTime float64 `json:"executionTime,omitempty"`
	Memory        int     `json:"memory,omitempty"`
}

type SubmissionResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	TestResults []TestResult `json:"testResults"`
}

// Public returns a copy safe to hand to clients: solutions are withheld and
// hidden test cases keep only their id and flag so the grader alone knows
// the expected output.
func (c Challenge) Public() Challenge {
	out := c
	out.Solutions = nil
	out.TestCases = make([]TestCase, len(c.TestCases))
	for i, tc := range c.TestCases {
		if tc.Hidden {
			out.TestCases[i] = TestCase{ID: tc.ID, Hidden: true}
			continue
		}
		out.TestCases[i] = tc
	}
	return out
}
