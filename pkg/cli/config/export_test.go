package config

func NewLLMForTest(provider, geminiProject, openaiAPIKey, embedModel string, dimension int) *LLM {
	return &LLM{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: "us-central1",
		openaiAPIKey:   openaiAPIKey,
		embedModel:     embedModel,
		dimension:      dimension,
		attempts:       3,
	}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewSourcesForTest(path, docsDir, notionToken string) *Sources {
	return &Sources{path: path, docsDir: docsDir, notion: Notion{token: notionToken}}
}

func NewRepositoryForTest(backend, projectID, collection string) *Repository {
	return &Repository{backend: backend, projectID: projectID, collection: collection}
}

func NewBaselineForTest(backend, dir string) *Baseline {
	return &Baseline{backend: backend, dir: dir}
}
