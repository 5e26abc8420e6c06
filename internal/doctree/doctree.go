package doctree

// Kind tags a partitioned element or a chunk.
type Kind int

const (
	KindOther Kind = iota // Body text that is not a heading, table or page furniture.
	KindTitle
	KindHeader
	KindFooter
	KindTable
	KindTableChunk
	KindComposite
)

var kindNames = map[Kind]string{
	KindOther:      "Other",
	KindTitle:      "Title",
	KindHeader:     "Header",
	KindFooter:     "Footer",
	KindTable:      "Table",
	KindTableChunk: "TableChunk",
	KindComposite:  "CompositeElement",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Other"
}

// IsTable reports whether k carries table content.
func (k Kind) IsTable() bool {
	return k == KindTable || k == KindTableChunk
}

// Element is one layout unit produced by a partitioner.
type Element struct {
	Kind Kind
	Text string
	HTML string // Table structure as HTML; empty for non-table elements.
	Page int    // 1-based source page, 0 if unknown.
}

// Chunk is a title-bounded group of elements produced by the chunker.
type Chunk struct {
	Kind Kind // KindComposite, KindTable or KindTableChunk.
	Text string
	HTML string
}

// Record is the final persisted unit.
type Record struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Source string `json:"source"`
	Index  int    `json:"index"` // position within its document
}
