package schema

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Part type identifiers.
const (
	PartTypeText = "text"
	PartTypeFile = "file"
	PartTypeData = "data"
)

// FileContent represents file data referenced by URI.
type FileContent struct {
	// Optional filename.
	Name *string `json:"name,omitempty"`
	// MIME type of the file content. (Required)
	MimeType string `json:"mimeType"`
	// URI pointing to the file content. (Required)
	URI string `json:"uri"`
	// Optional size in bytes.
	SizeBytes *int64 `json:"sizeBytes,omitempty"`
}

// Part is a piece of content within a Message or Artifact. It is a union
// type; the Type field determines which of the payload fields is set.
type Part struct {
	// Type identifier: "text", "file" or "data". (Required)
	Type string `json:"type"`
	// The text content, for "text" parts.
	Text *string `json:"text,omitempty"`
	// The file reference, for "file" parts.
	File *FileContent `json:"file,omitempty"`
	// The structured payload, for "data" parts.
	Data *map[string]interface{} `json:"data,omitempty"`
	// MIME type of the data payload, for "data" parts.
	MimeType *string `json:"mimeType,omitempty"`
	// Optional metadata specific to this part.
	Metadata *map[string]interface{} `json:"metadata,omitempty"`
}

// NewTextPart builds a text part.
func NewTextPart(text string) Part {
	return Part{Type: PartTypeText, Text: &text}
}

// NewFilePart builds a file part.
func NewFilePart(file FileContent) Part {
	return Part{Type: PartTypeFile, File: &file}
}

// NewDataPart builds a structured-data part.
func NewDataPart(mimeType string, data map[string]interface{}) Part {
	return Part{Type: PartTypeData, MimeType: &mimeType, Data: &data}
}

// Message represents a unit of communication between a user/client and an
// agent.
type Message struct {
	// Role of the sender: "user" or "agent". (Required)
	Role string `json:"role"`
	// Ordered, non-empty content parts. (Required)
	Parts []Part `json:"parts"`
	// Continuation marker: set to an existing task id to continue it.
	TaskID *string `json:"taskId,omitempty"`
	// Explicit grouping key for new tasks.
	ContextID *string `json:"contextId,omitempty"`
	// Tasks this message refers to.
	ReferenceTaskIDs []string `json:"referenceTaskIds,omitempty"`
	// Optional metadata associated with the entire message.
	Metadata *map[string]interface{} `json:"metadata,omitempty"`
}

// TextContent joins all text parts of the message with newlines. Non-text
// parts are skipped.
func (m *Message) TextContent() string {
	var out string
	for _, p := range m.Parts {
		if p.Type != PartTypeText || p.Text == nil {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += *p.Text
	}
	return out
}
