package api

// Request bodies for the four POST endpoints. Field names follow the
// published wire contract.

// IngestLogsRequest reports one client activity event.
type IngestLogsRequest struct {
	APIKey          string        `json:"API_key"`
	APISecret       string        `json:"API_secret"`
	PublicProjectID string        `json:"public_project_id"`
	Type            string        `json:"type"` // must be "log"
	Payload         IngestPayload `json:"payload"`
}

// IngestPayload is the event portion of an ingestion request.
type IngestPayload struct {
	ClientUUID   string `json:"client_uuid"`
	Action       string `json:"action"` // create | update | delete | other
	Event        string `json:"event"`
	EventDetails string `json:"event_details"`
	Timestamp    string `json:"timestamp"` // ISO 8601
}

// ChatQuestionRequest asks a question in the client's own voice.
type ChatQuestionRequest struct {
	APIKey          string      `json:"API_key"`
	APISecret       string      `json:"API_secret"`
	PublicProjectID string      `json:"public_project_id"`
	Type            string      `json:"type"` // must be "chat"
	Payload         ChatPayload `json:"payload"`
}

// ChatPayload is the question portion of a chat request.
type ChatPayload struct {
	ClientUUID string `json:"client_uuid"`
	Questions  string `json:"questions"`
}

// QueryUserStoryRequest asks a question about a client's narrative.
type QueryUserStoryRequest struct {
	APIKey          string `json:"API_key"`
	APISecret       string `json:"API_secret"`
	PublicProjectID string `json:"public_project_id"`
	ClientUUID      string `json:"client_uuid"`
	Question        string `json:"question"`
}

// GenerateStoryRequest is the internal regeneration trigger payload. It is
// already project-scoped: the project id here is the internal identifier.
type GenerateStoryRequest struct {
	ProjectID    string        `json:"project_id"`
	ClientUUID   string        `json:"client_uuid"`
	ActivityLogs []ActivityLog `json:"activity_logs"`
}

// ActivityLog is one event in a generate request's window.
type ActivityLog struct {
	Action       string `json:"action"`
	Event        string `json:"event"`
	EventDetails string `json:"event_details"`
	Timestamp    string `json:"timestamp"`
}
