package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionIdleMinutes == 0 {
		cfg.Server.SessionIdleMinutes = 12 * 60
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/benkyo/benkyo.db"
	}
	if cfg.Storage.DataRoot == "" {
		cfg.Storage.DataRoot = "/usr/local/var/benkyo/users"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "genai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "gemini-embedding-001"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 8000
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 2000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 20
	}
	if cfg.Retrieval.ContextSize == 0 {
		cfg.Retrieval.ContextSize = 15
	}
	if cfg.Retrieval.ChatK == 0 {
		cfg.Retrieval.ChatK = 4
	}
	if cfg.Study.ChatHistoryLimit == 0 {
		cfg.Study.ChatHistoryLimit = 20
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 400
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".txt", ".md", ".pptx", ".xlsx"}
	}
}
