package cli

var (
	GetIndexConfig = getIndexConfig
	RenderReport   = renderReport
	RenderHits     = renderHits
	RenderStatus   = renderStatus
	ToStatusOutput = toStatusOutput
	ReadInput      = readInput
	ValidateFormat = validateFormat
)
