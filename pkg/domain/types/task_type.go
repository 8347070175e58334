package types

// TaskType tells the embedding provider whether text is indexed content or a search query
type TaskType string

const (
	TaskRetrievalDocument TaskType = "retrieval_document"
	TaskRetrievalQuery    TaskType = "retrieval_query"
)

func (t TaskType) String() string {
	return string(t)
}
