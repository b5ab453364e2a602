package gemini

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Gemini 1.5 Flash output pricing, used only for a rough running estimate.
const costPerToken = 0.0000003

// Usage tracks request and token counters with a daily request cap.
type Usage struct {
	mu            sync.Mutex
	totalRequests int
	dailyRequests int
	dailyCap      int
	dailyReset    time.Time
	totalTokens   int64
	costEstimate  float64
}

// UsageSnapshot is a read-only copy of the usage counters.
type UsageSnapshot struct {
	TotalRequests     int     `json:"total_requests"`
	DailyRequests     int     `json:"daily_requests"`
	DailyLimit        int     `json:"daily_limit"`
	RequestsRemaining int     `json:"requests_remaining"`
	TotalTokens       int64   `json:"total_tokens"`
	EstimatedCost     float64 `json:"estimated_cost"`
}

func newUsage(dailyCap int) *Usage {
	if dailyCap <= 0 {
		dailyCap = 1500
	}
	return &Usage{dailyCap: dailyCap, dailyReset: midnightAfter(time.Now())}
}

// reserve counts a request against the daily cap before it is issued.
func (u *Usage) reserve() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolloverLocked()
	if u.dailyRequests >= u.dailyCap {
		return fmt.Errorf("daily request limit reached (%d)", u.dailyCap)
	}
	u.totalRequests++
	u.dailyRequests++
	return nil
}

// record tallies token usage from a completed response. When the API
// returns no usage metadata the count is estimated from the text length.
func (u *Usage) record(resp *genai.GenerateContentResponse, textLen int) {
	tokens := int64(textLen / 4)
	if resp != nil && resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
		tokens = int64(resp.UsageMetadata.TotalTokenCount)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.totalTokens += tokens
	u.costEstimate += float64(tokens) * costPerToken
}

func (u *Usage) snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolloverLocked()
	return UsageSnapshot{
		TotalRequests:     u.totalRequests,
		DailyRequests:     u.dailyRequests,
		DailyLimit:        u.dailyCap,
		RequestsRemaining: u.dailyCap - u.dailyRequests,
		TotalTokens:       u.totalTokens,
		EstimatedCost:     u.costEstimate,
	}
}

// ResetDaily clears the daily request counter.
func (u *Usage) ResetDaily() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dailyRequests = 0
	u.dailyReset = midnightAfter(time.Now())
}

func (u *Usage) rolloverLocked() {
	if now := time.Now(); now.After(u.dailyReset) {
		u.dailyRequests = 0
		u.dailyReset = midnightAfter(now)
	}
}

func midnightAfter(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
