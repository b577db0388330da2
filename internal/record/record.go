package record

// TitleNotFound is the title recorded for pages without a page header.
const TitleNotFound = "Title not found"

// OpportunityLink is a harvested slug title and the relative URL of its page
type OpportunityLink struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// EstimateMention is a notice sentence containing "estimated" and the
// numeric tokens found in it, in order of appearance
type EstimateMention struct {
	Sentence string   `json:"sentence"`
	Numbers  []string `json:"numbers"`
}

// BidRow is one data row of the bid results table
type BidRow struct {
	Company   string `json:"company"`
	BidAmount string `json:"bid_amount"`
}

// AwardRow is one data row of the awards table
type AwardRow struct {
	FirmName string `json:"firm_name"`
	AwardAmt string `json:"award_amt"`
}

// OpportunityRecord holds everything extracted from a single opportunity page
type OpportunityRecord struct {
	Title            string            `json:"title"`
	EstimatedNumbers []EstimateMention `json:"estimated_numbers"`
	BidResults       []BidRow          `json:"bid_results"`
	Awards           []AwardRow        `json:"awards"`
}

// New creates a record with the given title and empty sections.
// An empty title is replaced by TitleNotFound.
func New(title string) OpportunityRecord {
	if title == "" {
		title = TitleNotFound
	}
	return OpportunityRecord{
		Title:            title,
		EstimatedNumbers: make([]EstimateMention, 0),
		BidResults:       make([]BidRow, 0),
		Awards:           make([]AwardRow, 0),
	}
}

// NewEstimateMention creates a mention whose Numbers is never nil
func NewEstimateMention(sentence string, numbers []string) EstimateMention {
	if numbers == nil {
		numbers = make([]string, 0)
	}
	return EstimateMention{Sentence: sentence, Numbers: numbers}
}
