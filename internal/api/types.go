package api

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a persisted conversation thread. The backend returns sessions
// newest first; Messages is always empty in list responses.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
	Date     string    `json:"date"`
}

type Message struct {
	Role           string   `json:"role"`
	Content        string   `json:"content"`
	Sources        []Source `json:"sources,omitempty"`
	GenerationTime float64  `json:"generation_time,omitempty"`
}

// Source cites the document a passage of an answer was grounded in. The
// document is referenced by name only and may no longer exist.
type Source struct {
	Document      string `json:"document"`
	PageOrSection string `json:"page_or_section"`
}

// Document statuses. The backend only reports files it has fully indexed;
// the other states exist for forward compatibility with richer backends.
const (
	DocPending    = "pending"
	DocProcessing = "processing"
	DocIndexed    = "indexed"
	DocError      = "error"
)

type Document struct {
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Date      string  `json:"date"`
	Timestamp float64 `json:"timestamp"`
	Status    string  `json:"status,omitempty"`
}

type QueryRequest struct {
	Query          string `json:"query"`
	Model          string `json:"model"`
	SessionID      string `json:"session_id"`
	TargetDocument string `json:"target_document,omitempty"`
}

type QueryResponse struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	GenerationTime float64  `json:"generation_time"`
}

type UploadResult struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

type SystemStatus struct {
	Status        string `json:"status"`
	IndexedChunks int    `json:"indexed_chunks"`
	Model         string `json:"model"`
}
