package sheets

import "fmt"

// Collection names a sheet listing on the server.
type Collection string

const (
	CollectionUnverified Collection = "unverified"
	CollectionVerified   Collection = "verified"
)

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	switch Collection(s) {
	case CollectionUnverified, CollectionVerified:
		return Collection(s), nil
	default:
		return "", fmt.Errorf("unknown collection %q: want %q or %q", s, CollectionUnverified, CollectionVerified)
	}
}

// CandidateCount is the number of candidates on every sheet.
const CandidateCount = 3

// MaxVotesPerCandidate bounds a single count. A polling station serves a few
// hundred voters, so anything above this is a typo.
const MaxVotesPerCandidate = 1_000_000

// SheetSummary is one entry of a listing page.
type SheetSummary struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageURL"`
}

// SheetDetail is the full record for a single sheet, including the votes
// already recorded for it.
type SheetDetail struct {
	ImageURL  string              `json:"imageURL"`
	Verified  bool                `json:"verified"`
	CanReview bool                `json:"canReview"`
	Votes     [CandidateCount]int `json:"votes"`
}

// PageResult is one page of a listing. TotalPages is always at least 1.
type PageResult[T any] struct {
	Items      []T
	TotalPages int
}

// pageResponse is the wire shape of GET /sheets/{collection}/{page}.
type pageResponse struct {
	Sheets []SheetSummary `json:"sheets"`
	Pages  int            `json:"pages"`
}

func (r pageResponse) toResult() PageResult[SheetSummary] {
	pages := r.Pages
	if pages < 1 {
		pages = 1
	}
	items := r.Sheets
	if items == nil {
		items = []SheetSummary{}
	}
	return PageResult[SheetSummary]{Items: items, TotalPages: pages}
}

// VoteTally holds the vote count read for each candidate.
type VoteTally [CandidateCount]int

// Empty reports whether every count is zero.
func (t VoteTally) Empty() bool {
	return t == VoteTally{}
}

// Sum returns the total number of votes across candidates.
func (t VoteTally) Sum() int {
	total := 0
	for _, v := range t {
		total += v
	}
	return total
}

// submitRequest is the POST /sheet/{id} body. A nil Captcha is sent as null.
type submitRequest struct {
	Candidate1 int     `json:"candidate1"`
	Candidate2 int     `json:"candidate2"`
	Candidate3 int     `json:"candidate3"`
	Captcha    *string `json:"captcha"`
}

func newSubmitRequest(tally VoteTally, captcha string) submitRequest {
	req := submitRequest{
		Candidate1: tally[0],
		Candidate2: tally[1],
		Candidate3: tally[2],
	}
	if captcha != "" {
		req.Captcha = &captcha
	}
	return req
}

// ProgressSnapshot is the aggregate returned by GET /pie_chart.
type ProgressSnapshot struct {
	CandidateTotals [CandidateCount]int
	CheckedCount    int
}

type progressResponse struct {
	Candidate1 int `json:"candidate_1"`
	Candidate2 int `json:"candidate_2"`
	Candidate3 int `json:"candidate_3"`
	Count      int `json:"count"`
}

func (r progressResponse) toSnapshot() *ProgressSnapshot {
	return &ProgressSnapshot{
		CandidateTotals: [CandidateCount]int{r.Candidate1, r.Candidate2, r.Candidate3},
		CheckedCount:    r.Count,
	}
}
